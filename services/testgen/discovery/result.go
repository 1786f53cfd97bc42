// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package discovery finds the classes and methods a piece of code depends on
// by asking a language model, recursively and to a bounded depth, and
// bundles their truncated sources into one document.
package discovery

import "encoding/json"

// Result is the outcome of one discovery step. It is one of ClassMethods,
// ErrorResult or Group.
type Result interface {
	isResult()
}

// ClassMethods names methods the model inferred on one class.
type ClassMethods struct {
	Class   string   `json:"class"`
	Methods []string `json:"methods"`
}

// ErrorResult marks a branch that could not be expanded.
type ErrorResult struct {
	Class   string `json:"class,omitempty"`
	Message string `json:"error"`
}

// Group holds the results of one step followed by those of its children.
type Group struct {
	Children []Result
}

func (ClassMethods) isResult() {}
func (ErrorResult) isResult()  {}
func (Group) isResult()        {}

// Error implements error so an ErrorResult can be returned or wrapped.
func (e ErrorResult) Error() string {
	if e.Class == "" {
		return e.Message
	}
	return e.Class + ": " + e.Message
}

// MarshalJSON encodes a group as the array of its children.
func (g Group) MarshalJSON() ([]byte, error) {
	if g.Children == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g.Children)
}

// IsError reports whether r is an ErrorResult.
func IsError(r Result) bool {
	_, ok := r.(ErrorResult)
	return ok
}

// Walk visits r and, for groups, every descendant in order.
func Walk(r Result, fn func(Result)) {
	fn(r)
	if g, ok := r.(Group); ok {
		for _, child := range g.Children {
			Walk(child, fn)
		}
	}
}
