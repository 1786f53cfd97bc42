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

import "errors"

var (
	// ErrNoFinalOutput indicates the response has no <final_output> section.
	ErrNoFinalOutput = errors.New("No <final_output> tags found or empty content")

	// ErrMalformedJSON indicates the <final_output> section is not a JSON object.
	ErrMalformedJSON = errors.New("malformed JSON in <final_output>")

	// ErrEmptyClassName indicates Handle was called without a class.
	ErrEmptyClassName = errors.New("class name must not be empty")
)

// msgExtractFailed is the branch error recorded when a class yields no stub.
const msgExtractFailed = "Failed to extract truncated class"
