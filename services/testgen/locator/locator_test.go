// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package locator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectRoot = "/project"

const composerJSON = `{
    "name": "acme/app",
    "autoload": {
        "psr-4": {
            "App\\": "app/",
            "Database\\Factories\\": ["database/factories/"]
        }
    },
    "autoload-dev": {
        "psr-4": {"Tests\\": "tests/"}
    }
}`

const userSource = `<?php

namespace App\Models;

use App\Concerns\HasBooks;

class User extends Account
{
    use HasBooks;

    public function get_my_book()
    {
        return $this->books()->first();
    }

    public function shelf()
    {
        return 'mine';
    }
}
`

const accountSource = `<?php

namespace App\Models;

class Account
{
    public function balance()
    {
        return 0;
    }
}
`

const hasBooksSource = `<?php

namespace App\Concerns;

trait HasBooks
{
    use Shelves;

    public function books()
    {
        return $this->hasMany(Book::class);
    }

    public function shelf()
    {
        return 'trait';
    }
}
`

const shelvesSource = `<?php

namespace App\Concerns;

trait Shelves
{
    public function shelves()
    {
        return [];
    }
}
`

const legacySource = `<?php

namespace App\Legacy;

class Report
{
    public function build()
    {
    }
}
`

const vendorSource = `<?php

namespace App\Legacy;

class Hidden
{
    public function build()
    {
    }
}
`

func newTestProject(t *testing.T) (afero.Fs, *Locator) {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"composer.json":             composerJSON,
		"app/Models/User.php":       userSource,
		"app/Models/Account.php":    accountSource,
		"app/Concerns/HasBooks.php": hasBooksSource,
		"app/Concerns/Shelves.php":  shelvesSource,
		"legacy/reports.php":        legacySource,
		"vendor/acme/Hidden.php":    vendorSource,
	}
	for rel, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(projectRoot, rel), []byte(content), 0o644))
	}

	return fs, New(projectRoot, WithFS(fs))
}

func TestLocator_LocateMethods_DirectAndMissing(t *testing.T) {
	_, l := newTestProject(t)

	loc, err := l.LocateMethods(context.Background(), `App\Models\User`, []string{"get_my_book", "does_not_exist", "shelf"})
	require.NoError(t, err)

	assert.Equal(t, `App\Models\User`, loc.ClassName)
	assert.Equal(t, filepath.Join(projectRoot, "app/Models/User.php"), loc.FilePath)
	assert.Equal(t, 7, loc.ClassStartLine)
	assert.Equal(t, []MethodInfo{
		{Name: "get_my_book", StartLine: 11, EndLine: 14},
		{Name: "shelf", StartLine: 16, EndLine: 19},
	}, loc.Methods, "shelf is overridden by the class and stays direct")
	assert.Empty(t, loc.Traits)
	assert.Equal(t, 2, loc.MethodCount())
}

func TestLocator_LocateMethods_TraitAttribution(t *testing.T) {
	_, l := newTestProject(t)

	loc, err := l.LocateMethods(context.Background(), `\App\Models\User`, []string{"books", "shelves", "balance"})
	require.NoError(t, err)

	assert.Empty(t, loc.Methods)
	require.Len(t, loc.Traits, 3)

	assert.Equal(t, TraitMethods{
		Name:     `App\Concerns\HasBooks`,
		Kind:     OwnerTrait,
		FilePath: filepath.Join(projectRoot, "app/Concerns/HasBooks.php"),
		Methods:  []MethodInfo{{Name: "books", StartLine: 9, EndLine: 12}},
	}, loc.Traits[0])

	assert.Equal(t, `App\Concerns\Shelves`, loc.Traits[1].Name, "nested trait declares shelves")
	assert.Equal(t, filepath.Join(projectRoot, "app/Concerns/Shelves.php"), loc.Traits[1].FilePath)

	assert.Equal(t, `App\Models\Account`, loc.Traits[2].Name)
	assert.Equal(t, OwnerParent, loc.Traits[2].Kind)
	assert.Equal(t, []MethodInfo{{Name: "balance", StartLine: 7, EndLine: 10}}, loc.Traits[2].Methods)
}

func TestLocator_LocateMethods_GroupsPerTrait(t *testing.T) {
	_, l := newTestProject(t)

	loc, err := l.LocateMethods(context.Background(), `App\Models\Account`, []string{"balance"})
	require.NoError(t, err)
	assert.Len(t, loc.Methods, 1)

	loc, err = l.LocateMethods(context.Background(), `App\Concerns\HasBooks`, []string{"books", "shelves", "shelves"})
	require.NoError(t, err)
	assert.Equal(t, []MethodInfo{{Name: "books", StartLine: 9, EndLine: 12}}, loc.Methods)
	require.Len(t, loc.Traits, 1)
	assert.Equal(t, `App\Concerns\Shelves`, loc.Traits[0].Name)
	assert.Len(t, loc.Traits[0].Methods, 2, "one group per declaring trait")
}

func TestLocator_LocateMethods_UnknownClass(t *testing.T) {
	_, l := newTestProject(t)

	_, err := l.LocateMethods(context.Background(), `App\Models\Missing`, []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.Contains(t, err.Error(), `Class "App\Models\Missing" does not exist`)

	_, err = l.LocateMethods(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyClassName)
}

func TestLocator_FallbackIndex(t *testing.T) {
	_, l := newTestProject(t)

	loc, err := l.LocateMethods(context.Background(), `App\Legacy\Report`, []string{"build"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(projectRoot, "legacy/reports.php"), loc.FilePath)

	_, err = l.LocateMethods(context.Background(), `App\Legacy\Hidden`, []string{"build"})
	assert.ErrorIs(t, err, ErrClassNotFound, "vendor is excluded from the index")
}

func TestLocator_FallbackIndex_SourceRoots(t *testing.T) {
	fs, _ := newTestProject(t)
	l := New(projectRoot, WithFS(fs), WithSourceRoots("app"), WithExcludes())

	_, err := l.LocateMethods(context.Background(), `App\Legacy\Report`, []string{"build"})
	assert.ErrorIs(t, err, ErrClassNotFound, "legacy is outside the source roots")
}

func TestLocator_ReflectsFileChanges(t *testing.T) {
	fs, l := newTestProject(t)

	loc, err := l.LocateMethods(context.Background(), `App\Models\Account`, []string{"balance"})
	require.NoError(t, err)
	assert.Equal(t, 7, loc.Methods[0].StartLine)

	updated := `<?php

namespace App\Models;

class Account
{
    public const LIMIT = 10;

    public function balance()
    {
        return self::LIMIT;
    }
}
`
	require.NoError(t, afero.WriteFile(fs, filepath.Join(projectRoot, "app/Models/Account.php"), []byte(updated), 0o644))

	loc, err = l.LocateMethods(context.Background(), `App\Models\Account`, []string{"balance"})
	require.NoError(t, err)
	assert.Equal(t, 9, loc.Methods[0].StartLine)
	assert.Equal(t, 12, loc.Methods[0].EndLine)
}

func TestLocator_ClassMethods(t *testing.T) {
	_, l := newTestProject(t)

	names, err := l.ClassMethods(context.Background(), `App\Models\User`)
	require.NoError(t, err)
	assert.Equal(t, []string{"get_my_book", "shelf", "books", "shelves", "balance"}, names)
}

func TestCandidates(t *testing.T) {
	entries := []psr4Entry{
		{prefix: `App\Models\`, dirs: []string{"models/"}},
		{prefix: `App\`, dirs: []string{"app/"}},
	}

	got := candidates(entries, "/p", `App\Models\User`)
	assert.Equal(t, []string{
		filepath.Join("/p", "models", "User.php"),
		filepath.Join("/p", "app", "Models", "User.php"),
	}, got)
}
