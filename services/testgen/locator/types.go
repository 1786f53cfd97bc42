// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package locator resolves PHP classes to source locations.
//
// It is the static counterpart of a reflection lookup: given a fully
// qualified class name and a list of method names it reports the file the
// class lives in, the line its declaration starts on, the line span of every
// requested method and which trait (or ancestor class) actually declares
// methods the class does not declare itself.
package locator

// OwnerKind records how a grouped method reached the class.
type OwnerKind string

const (
	// OwnerTrait marks methods declared by a trait the class uses.
	OwnerTrait OwnerKind = "trait"

	// OwnerParent marks methods inherited from an ancestor class.
	OwnerParent OwnerKind = "parent"
)

// MethodInfo is the line span of one method. Lines are 1-based and inclusive.
type MethodInfo struct {
	Name      string `json:"name" yaml:"name"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
}

// TraitMethods groups the requested methods declared by one trait or ancestor.
type TraitMethods struct {
	Name     string       `json:"name" yaml:"name"`
	Kind     OwnerKind    `json:"kind" yaml:"kind"`
	FilePath string       `json:"filepath" yaml:"filepath"`
	Methods  []MethodInfo `json:"methods" yaml:"methods"`
}

// MethodLocation is the location metadata for a class and a method subset.
type MethodLocation struct {
	ClassName      string         `json:"class_name" yaml:"class_name"`
	FilePath       string         `json:"filepath" yaml:"filepath"`
	ClassStartLine int            `json:"class_start_line" yaml:"class_start_line"`
	Methods        []MethodInfo   `json:"methods" yaml:"methods"`
	Traits         []TraitMethods `json:"traits" yaml:"traits"`
}

// MethodCount returns the number of located methods, direct and grouped.
func (l *MethodLocation) MethodCount() int {
	n := len(l.Methods)
	for _, t := range l.Traits {
		n += len(t.Methods)
	}
	return n
}

// group returns the owner group for name, creating it on first use so that
// groups keep first-seen order.
func (l *MethodLocation) group(name string, kind OwnerKind, path string) *TraitMethods {
	for i := range l.Traits {
		if l.Traits[i].Name == name {
			return &l.Traits[i]
		}
	}
	l.Traits = append(l.Traits, TraitMethods{Name: name, Kind: kind, FilePath: path})
	return &l.Traits[len(l.Traits)-1]
}
