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

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/aitestgen/services/testgen/phpast"
)

// BuildPrompt renders the test generation prompt.
//
// Description:
//
//	The prompt fixes the house style: snake_case names, one
//	it('...',function(){ block per test and the runner's own assertions.
//	It names every requested method, embeds the source bundle and asks
//	for nothing but copy-pasteable test code.
func BuildPrompt(className string, methods []string, bundle string, cfg *Config) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "We're working on a %s project.\n", cfg.FrameworkVersion)
	sb.WriteString("Style guide - always use snake_case for method & variable names.\n")
	fmt.Fprintf(&sb, "We are using %[1]s as a test runner - so please write all tests in %[1]s style and using the %[1]s assertions & helpers, starting each test with \n", cfg.TestRunner)
	sb.WriteString("```\nit('...',function(){\n  // test here\n)\n```\n\n")

	fmt.Fprintf(&sb, "Given that, please write all tests required to give me full coverage of the `%s` method(s) of the `%s` class.\n\n",
		strings.Join(methods, ", "), phpast.ShortName(className))

	sb.WriteString("Here is the relevant code:\n")
	sb.WriteString(bundle)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Please output ONLY the test code, such that I could copy and paste it into a new %s testing file and run the tests.\n\n", cfg.TestRunner)
	sb.WriteString("If you need to add context, do it by using the '''//''' or '''/* */''' comment syntax at the top of the class.\n\n")
	sb.WriteString("Your response should begin with ```<?php ``` and end with ```")

	return sb.String()
}
