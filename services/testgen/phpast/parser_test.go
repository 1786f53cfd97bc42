// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserModel = `<?php

namespace App\Models;

use App\Concerns\HasBooks;
use Illuminate\Database\Eloquent\Model as BaseModel;
use Illuminate\Notifications\Notifiable;

#[Fillable]
class User extends BaseModel
{
    use HasBooks, Notifiable;

    public function get_my_book()
    {
        return $this->books()->first();
    }

    #[Deprecated]
    protected function name(): string
    {
        return 'x';
    }
}
`

const testTrait = `<?php

namespace App\Concerns;

trait HasBooks
{
    use \App\Concerns\Shared\Paginates;

    public function books()
    {
        return $this->hasMany(Book::class);
    }
}
`

const testBracedNamespaces = `<?php

namespace App\One {
    use App\Two\Helper;

    class First extends Helper
    {
        public function run() {}
    }
}

namespace App\Two {
    class Helper {}
    interface Runs
    {
        public function run();
    }
    enum Status: string
    {
        case On = 'on';

        public function label(): string
        {
            return 'on';
        }
    }
}
`

func TestParser_Parse_ClassDeclaration(t *testing.T) {
	p := NewParser()

	file, err := p.Parse(context.Background(), "app/Models/User.php", []byte(testUserModel))
	require.NoError(t, err)

	assert.Equal(t, `App\Models`, file.Namespace)
	assert.False(t, file.HasErrors)
	require.Len(t, file.Types, 1)

	user := file.Types[0]
	assert.Equal(t, KindClass, user.Kind)
	assert.Equal(t, "User", user.Name)
	assert.Equal(t, `App\Models\User`, user.FQCN)
	assert.Equal(t, 10, user.StartLine, "attribute line is not part of the declaration")
	assert.Equal(t, 24, user.EndLine)
	assert.Equal(t, `Illuminate\Database\Eloquent\Model`, user.Parent)
	assert.Equal(t, []string{`App\Concerns\HasBooks`, `Illuminate\Notifications\Notifiable`}, user.Traits)

	require.Len(t, user.Methods, 2)
	assert.Equal(t, MethodDecl{Name: "get_my_book", StartLine: 14, EndLine: 17}, user.Methods[0])
	assert.Equal(t, MethodDecl{Name: "name", StartLine: 19, EndLine: 23}, user.Methods[1], "attribute line is part of the method")
}

func TestParser_Parse_Trait(t *testing.T) {
	p := NewParser()

	file, err := p.Parse(context.Background(), "app/Concerns/HasBooks.php", []byte(testTrait))
	require.NoError(t, err)

	trait, ok := file.Type(`\App\Concerns\HasBooks`)
	require.True(t, ok)
	assert.Equal(t, KindTrait, trait.Kind)
	assert.Equal(t, []string{`App\Concerns\Shared\Paginates`}, trait.Traits)

	m, ok := trait.Method("BOOKS")
	require.True(t, ok, "method lookup is case-insensitive")
	assert.Equal(t, 9, m.StartLine)
	assert.Equal(t, 12, m.EndLine)
}

func TestParser_Parse_BracedNamespaces(t *testing.T) {
	p := NewParser()

	file, err := p.Parse(context.Background(), "multi.php", []byte(testBracedNamespaces))
	require.NoError(t, err)

	first, ok := file.Type(`App\One\First`)
	require.True(t, ok)
	assert.Equal(t, `App\Two\Helper`, first.Parent)

	helper, ok := file.Type(`App\Two\Helper`)
	require.True(t, ok)
	assert.Equal(t, KindClass, helper.Kind)
	assert.Empty(t, helper.Methods)

	runs, ok := file.Type(`App\Two\Runs`)
	require.True(t, ok)
	assert.Equal(t, KindInterface, runs.Kind)
	assert.Len(t, runs.Methods, 1)

	status, ok := file.Type(`App\Two\Status`)
	require.True(t, ok)
	assert.Equal(t, KindEnum, status.Kind)
	_, ok = status.Method("label")
	assert.True(t, ok)
}

func TestParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		opts    []Option
		want    error
	}{
		{name: "empty", content: nil, want: ErrEmptyContent},
		{name: "invalid utf8", content: []byte{0xff, 0xfe, 0xfd}, want: ErrInvalidContent},
		{name: "too large", content: []byte("<?php class A {}"), opts: []Option{WithMaxFileSize(4)}, want: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(tt.opts...).Parse(context.Background(), "x.php", tt.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "x.php", perr.FilePath)
		})
	}
}

func TestParser_Parse_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().Parse(ctx, "x.php", []byte("<?php class A {}"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseImports(t *testing.T) {
	tests := []struct {
		stmt string
		want map[string]string
	}{
		{
			stmt: `use App\Models\User;`,
			want: map[string]string{"user": `App\Models\User`},
		},
		{
			stmt: `use App\Models\User as Member, \App\Models\Team;`,
			want: map[string]string{"member": `App\Models\User`, "team": `App\Models\Team`},
		},
		{
			stmt: `use App\Models\{User, Team as Squad};`,
			want: map[string]string{"user": `App\Models\User`, "squad": `App\Models\Team`},
		},
		{
			stmt: `use function App\Helpers\format;`,
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			assert.Equal(t, tt.want, parseImports(tt.stmt))
		})
	}
}

func TestParseTraitUse(t *testing.T) {
	assert.Equal(t, []string{"HasFactory", "Notifiable"}, parseTraitUse("use HasFactory, Notifiable;"))
	assert.Equal(t, []string{"A", "B"}, parseTraitUse("use A, B { A::hello insteadof B; }"))
}

func TestScope_Resolve(t *testing.T) {
	s := &scope{namespace: `App\Http`, imports: map[string]string{"models": `App\Models`}}

	assert.Equal(t, `Foo\Bar`, s.resolve(`\Foo\Bar`))
	assert.Equal(t, `App\Models\User`, s.resolve(`Models\User`))
	assert.Equal(t, `App\Http\Controller`, s.resolve("Controller"))
	assert.Equal(t, `App\Http\Sub\Thing`, s.resolve(`namespace\Sub\Thing`))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "User", ShortName(`App\Models\User`))
	assert.Equal(t, "User", ShortName(`\User`))
	assert.Equal(t, "User", ShortName("User"))
}
