// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package discovery

import (
	"bytes"
	"encoding/json"
	"strings"
)

// DependencyMap maps class names to method names. Classes keep the order in
// which they were first added and each method list is free of duplicates in
// first-seen order.
//
// Thread Safety:
//
//	Not safe for concurrent mutation.
type DependencyMap struct {
	order   []string
	methods map[string][]string
	seen    map[string]map[string]struct{}
}

// NewDependencyMap creates an empty map.
func NewDependencyMap() *DependencyMap {
	return &DependencyMap{
		methods: make(map[string][]string),
		seen:    make(map[string]map[string]struct{}),
	}
}

// Add appends methods to class, skipping empty names and duplicates. A class
// is only recorded once it has at least one method.
func (m *DependencyMap) Add(class string, methods ...string) {
	for _, method := range methods {
		if method == "" {
			continue
		}
		seen, ok := m.seen[class]
		if !ok {
			seen = make(map[string]struct{})
			m.seen[class] = seen
			m.order = append(m.order, class)
		}
		if _, dup := seen[method]; dup {
			continue
		}
		seen[method] = struct{}{}
		m.methods[class] = append(m.methods[class], method)
	}
}

// Classes returns the class names in insertion order.
func (m *DependencyMap) Classes() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Methods returns the methods recorded for class.
func (m *DependencyMap) Methods(class string) []string {
	src := m.methods[class]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Contains reports whether class has been recorded.
func (m *DependencyMap) Contains(class string) bool {
	_, ok := m.methods[class]
	return ok
}

// Len returns the number of classes.
func (m *DependencyMap) Len() int {
	return len(m.order)
}

// Entries returns the map as ordered ClassMethods values.
func (m *DependencyMap) Entries() []ClassMethods {
	out := make([]ClassMethods, 0, len(m.order))
	for _, class := range m.order {
		out = append(out, ClassMethods{Class: class, Methods: m.Methods(class)})
	}
	return out
}

// ToMap returns a plain map copy, losing order.
func (m *DependencyMap) ToMap() map[string][]string {
	out := make(map[string][]string, len(m.order))
	for _, class := range m.order {
		out[class] = m.Methods(class)
	}
	return out
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *DependencyMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, class := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(class)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.methods[class])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Fold flattens a result tree into a DependencyMap.
//
// Description:
//
//	ClassMethods whose class starts with prefix contribute their methods;
//	classes outside the prefix are ignored. ErrorResult contributes
//	nothing. Groups are folded child by child in order, so the first
//	occurrence of a class or method fixes its position no matter how
//	deeply it is nested.
func Fold(r Result, prefix string) *DependencyMap {
	m := NewDependencyMap()
	foldInto(m, r, prefix)
	return m
}

func foldInto(m *DependencyMap, r Result, prefix string) {
	switch v := r.(type) {
	case ClassMethods:
		class := normalizeClass(v.Class)
		if inNamespace(class, prefix) {
			m.Add(class, v.Methods...)
		}
	case Group:
		for _, child := range v.Children {
			foldInto(m, child, prefix)
		}
	case ErrorResult:
		// Failed branches contribute nothing.
	}
}

func normalizeClass(class string) string {
	return strings.TrimPrefix(strings.TrimSpace(class), `\`)
}

func inNamespace(class, prefix string) bool {
	return strings.HasPrefix(class, prefix)
}
