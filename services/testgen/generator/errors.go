// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generator

import "errors"

var (
	// ErrEmptyClassName indicates Generate was called without a class.
	ErrEmptyClassName = errors.New("class name must not be empty")

	// ErrNoMethods indicates Generate was called without methods.
	ErrNoMethods = errors.New("at least one method is required")

	// ErrDiscoveryFailed indicates dependency discovery did not complete.
	ErrDiscoveryFailed = errors.New("dependency discovery failed")

	// ErrLLMGenerationFailed indicates the generation call failed.
	ErrLLMGenerationFailed = errors.New("test generation request failed")

	// ErrStorageWrite indicates the generated test could not be written.
	ErrStorageWrite = errors.New("failed to write generated test")
)
