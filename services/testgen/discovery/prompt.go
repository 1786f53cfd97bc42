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
	"fmt"
	"strings"
)

// BuildPrompt renders the discovery prompt for one truncated class stub.
//
// Description:
//
//	The prompt asks the model to name classes under rootNamespace whose
//	methods are referenced inside the supplied method bodies. Reasoning goes
//	in <scratchpad> tags and the answer in <final_output> tags as a JSON
//	object of class name to method names.
func BuildPrompt(stub, framework, rootNamespace string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "We're working on a %s. ", framework)
	sb.WriteString("Your job is to analyze the given code and determine what ADDITIONAL classes and their specific methods you would need to write fully comprehensive tests. ")
	sb.WriteString("Focus ONLY on the code within the methods provided, not on use statements or class properties. ")
	fmt.Fprintf(&sb, "We're only concerned with classes that have a namespace starting with %s.\n\n", rootNamespace)

	sb.WriteString("Guidelines for analysis:\n")
	sb.WriteString("1. Examine both explicit and implicit relationships in the method code.\n")
	sb.WriteString("2. Look for method calls within the provided methods that imply the existence of other classes or methods.\n")
	sb.WriteString("3. Consider Laravel conventions and common patterns to infer potential methods, but only if they're referenced in the provided method code.\n")
	sb.WriteString("4. Pay special attention to trait usage and what methods it might introduce, but only if used within the provided methods.\n\n")

	sb.WriteString("For relationships and method calls:\n")
	sb.WriteString("- e.g., \"$first_book_title = auth()->user()->books()->first()->get_title()\" implies:\n")
	sb.WriteString("  a) A \"books\" relationship on the User model\n")
	sb.WriteString("  b) A \"get_title\" method on the Book model\n")
	sb.WriteString("- e.g., \"$user->get_my_book()\" implies a \"get_my_book\" method on the User class\n\n")

	sb.WriteString("In your analysis:\n")
	sb.WriteString("1. Use <scratchpad></scratchpad> tags to detail your reasoning for each class and method.\n")
	sb.WriteString("2. In <final_output></final_output> tags, provide a JSON string where:\n")
	fmt.Fprintf(&sb, "   - Keys are fully qualified class names (e.g., \"%sModels\\User\")\n", rootNamespace)
	sb.WriteString("   - Values are arrays of method names you've identified or inferred\n\n")

	sb.WriteString("Remember to include ONLY methods that are directly referenced or implied by the code within the provided methods. ")
	sb.WriteString("Ignore any classes or methods mentioned in use statements or class properties unless they are explicitly used within the method code.\n\n")

	sb.WriteString("Code to analyze:\n```\n")
	sb.WriteString(stub)
	sb.WriteString("\n```\n")

	return sb.String()
}
