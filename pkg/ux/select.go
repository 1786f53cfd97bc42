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
	"errors"

	"github.com/charmbracelet/huh"
)

// ErrNothingSelected indicates the user confirmed an empty selection.
var ErrNothingSelected = errors.New("no methods selected")

// SelectMethods asks the user to pick methods from options.
//
// Description:
//
//	Shows a filterable multi-select. Only call it when Interactive
//	reports true.
//
// Outputs:
//   - []string: The chosen methods in option order.
//   - error: ErrNothingSelected, or huh.ErrUserAborted on ctrl+c.
func SelectMethods(className string, options []string) ([]string, error) {
	var selected []string

	field := huh.NewMultiSelect[string]().
		Title("Methods of " + className).
		Description("space to toggle, enter to confirm").
		Options(huh.NewOptions(options...)...).
		Filterable(true).
		Value(&selected)

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return nil, err
	}
	return orderLike(selected, options)
}

// orderLike returns selected in the order the values appear in options.
func orderLike(selected, options []string) ([]string, error) {
	if len(selected) == 0 {
		return nil, ErrNothingSelected
	}
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	out := make([]string, 0, len(selected))
	for _, o := range options {
		if chosen[o] {
			out = append(out, o)
		}
	}
	return out, nil
}
