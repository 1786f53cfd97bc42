// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command aitestgen generates PHP unit tests with a language model.
//
// It locates the methods to test, walks their project dependencies with a
// discovery model, sends the combined source to a generation model and
// writes the response under generated_tests/.
//
// Usage:
//
//	aitestgen init
//	aitestgen generate 'App\Models\User' getFullName isAdmin
//	aitestgen discover 'App\Models\User' getFullName
//	aitestgen locate 'App\Models\User' getFullName
//	aitestgen coverage coverage.xml --format json
//	aitestgen history list
//
// Provider keys are read from OPENAI_API_KEY and ANTHROPIC_API_KEY, or from
// /run/secrets/openai_api_key and /run/secrets/anthropic_api_key.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultEnvironment()).Execute(); err != nil {
		os.Exit(1)
	}
}
