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

import "errors"

var (
	// ErrClassNotFound indicates no source file declares the requested class.
	ErrClassNotFound = errors.New("class not found")

	// ErrEmptyClassName indicates LocateMethods was called without a class name.
	ErrEmptyClassName = errors.New("empty class name")

	// ErrIndexFailed indicates the project index could not be built.
	ErrIndexFailed = errors.New("project index failed")
)
