// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the aitestgen CLI.
//
// Output is styled with lipgloss when stdout is a terminal and falls back
// to plain, script-friendly lines otherwise.
package ux

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Key       lipgloss.Style

	Box     lipgloss.Style
	CodeBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Key:       lipgloss.NewStyle().Foreground(ColorTealPrimary).Width(26),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	CodeBox: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(ColorSlate).
		PaddingLeft(1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with its color.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return Styles.Muted.Render(string(i))
	}
}

// Printer writes styled or plain output.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	out   io.Writer
	err   io.Writer
	plain bool
}

// NewPrinter creates a Printer for out and errOut. Styling is enabled only
// when out is a terminal and NO_COLOR is unset.
func NewPrinter(out, errOut io.Writer) *Printer {
	plain := true
	if f, ok := out.(*os.File); ok && IsTerminal(f) && os.Getenv("NO_COLOR") == "" {
		plain = false
	}
	return &Printer{out: out, err: errOut, plain: plain}
}

// NewPlainPrinter creates a Printer that never styles output.
func NewPlainPrinter(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut, plain: true}
}

// Plain reports whether styling is disabled.
func (p *Printer) Plain() bool {
	return p.plain
}

// Out returns the standard output writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Title prints a heading. Plain mode omits it.
func (p *Printer) Title(text string) {
	if p.plain {
		return
	}
	fmt.Fprintln(p.out, Styles.Title.Render(text))
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	p.success(p.out, text)
}

func (p *Printer) success(w io.Writer, text string) {
	if p.plain {
		fmt.Fprintf(w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(w, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning line to the error writer.
func (p *Printer) Warning(text string) {
	if p.plain {
		fmt.Fprintf(p.err, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.err, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error line to the error writer.
func (p *Printer) Error(text string) {
	if p.plain {
		fmt.Fprintf(p.err, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.err, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	if p.plain {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// KeyValue prints an aligned key and value.
func (p *Printer) KeyValue(key string, value any) {
	if p.plain {
		fmt.Fprintf(p.out, "%s: %v\n", key, value)
		return
	}
	fmt.Fprintf(p.out, "%s %v\n", Styles.Key.Render(key), value)
}

// List prints a bulleted list under a label. Empty lists print "(none)".
func (p *Printer) List(label string, items []string) {
	if p.plain {
		if len(items) == 0 {
			fmt.Fprintf(p.out, "%s: (none)\n", label)
			return
		}
		fmt.Fprintf(p.out, "%s:\n", label)
		for _, item := range items {
			fmt.Fprintf(p.out, "  - %s\n", item)
		}
		return
	}
	fmt.Fprintln(p.out, Styles.Subtitle.Render(label))
	if len(items) == 0 {
		fmt.Fprintf(p.out, "  %s\n", Styles.Muted.Render("(none)"))
		return
	}
	for _, item := range items {
		fmt.Fprintf(p.out, "  %s %s\n", IconBullet.Render(), item)
	}
}

// Map prints class to methods entries in key order.
func (p *Printer) Map(label string, entries map[string][]string) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s %s %s", k, IconArrow, strings.Join(entries[k], ", ")))
	}
	p.List(label, lines)
}

// Box prints text in a rounded box. Plain mode prints "title: content".
func (p *Printer) Box(title, content string) {
	if p.plain {
		fmt.Fprintf(p.out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.out, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// Code prints a block of source text unchanged in plain mode.
func (p *Printer) Code(text string) {
	if p.plain {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintln(p.out, Styles.CodeBox.Render(text))
}
