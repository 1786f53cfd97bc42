// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter() (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPlainPrinter(&out, &errOut), &out, &errOut
}

func TestNewPrinter_NonTerminalIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, &buf)
	assert.True(t, p.Plain())
}

func TestPrinter_PlainOutput(t *testing.T) {
	p, out, errOut := newTestPrinter()

	p.Title("ignored")
	p.Success("written")
	p.Info("hello")
	p.KeyValue("class", `App\Models\User`)
	p.List("methods", []string{"a", "b"})
	p.List("suites", nil)
	p.Box("Path", "generated_tests/x.php")
	p.Code("<?php")
	p.Warning("careful")
	p.Error("broken")

	assert.Equal(t,
		"OK: written\n"+
			"hello\n"+
			"class: App\\Models\\User\n"+
			"methods:\n  - a\n  - b\n"+
			"suites: (none)\n"+
			"Path: generated_tests/x.php\n"+
			"<?php\n",
		out.String())
	assert.Equal(t, "WARN: careful\nERROR: broken\n", errOut.String())
}

func TestPrinter_Map(t *testing.T) {
	p, out, _ := newTestPrinter()

	p.Map("dependencies", map[string][]string{
		`App\B`: {"x", "y"},
		`App\A`: {"z"},
	})

	assert.Equal(t, "dependencies:\n  - App\\A → z\n  - App\\B → x, y\n", out.String())
}

func TestPrinter_Run(t *testing.T) {
	p, out, errOut := newTestPrinter()

	require.NoError(t, p.Run("discovering", func() error { return nil }))
	assert.Empty(t, out.String())
	assert.Equal(t, "PROGRESS: discovering\nOK: discovering\n", errOut.String())
	errOut.Reset()

	boom := errors.New("boom")
	err := p.Run("generating", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "generating: boom")
	assert.Contains(t, errOut.String(), "PROGRESS: generating\n")
	assert.NotContains(t, errOut.String(), "ERROR")
}

func TestSpinner_StyledStartStop(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &Printer{out: &out, err: &errOut}
	s := p.NewSpinner("working")

	s.Start()
	s.Start()
	s.Update("still working")
	s.Stop()
	s.Stop()

	assert.Contains(t, errOut.String(), "\r\033[K")
}

func TestOrderLike(t *testing.T) {
	got, err := orderLike([]string{"c", "a"}, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, got)

	_, err = orderLike(nil, []string{"a"})
	assert.ErrorIs(t, err, ErrNothingSelected)
}

func TestIsTerminal_Nil(t *testing.T) {
	assert.False(t, IsTerminal(nil))
}
