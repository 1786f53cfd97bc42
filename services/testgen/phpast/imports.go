// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpast

import "strings"

// parseImports reads a namespace use statement and returns alias -> FQCN.
//
// Handles plain, aliased and grouped imports:
//
//	use App\Models\User;
//	use App\Models\User as Member, App\Models\Team;
//	use App\Models\{User, Team as Squad};
//
// Function and constant imports are ignored.
func parseImports(stmt string) map[string]string {
	out := make(map[string]string)

	body := trimStatement(stmt, "use")
	if body == "" || hasKeywordPrefix(body, "function") || hasKeywordPrefix(body, "const") {
		return out
	}

	if open := strings.Index(body, "{"); open >= 0 {
		prefix := strings.TrimRight(strings.TrimSpace(body[:open]), `\`)
		closing := strings.LastIndex(body, "}")
		if closing < open {
			closing = len(body)
		}
		for _, clause := range strings.Split(body[open+1:closing], ",") {
			clause = strings.TrimSpace(clause)
			if clause == "" || hasKeywordPrefix(clause, "function") || hasKeywordPrefix(clause, "const") {
				continue
			}
			addImport(out, prefix+`\`+clause)
		}
		return out
	}

	for _, clause := range strings.Split(body, ",") {
		addImport(out, clause)
	}
	return out
}

func addImport(out map[string]string, clause string) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return
	}

	name, alias := clause, ""
	fields := strings.Fields(clause)
	if len(fields) == 3 && strings.EqualFold(fields[1], "as") {
		name, alias = fields[0], fields[2]
	}

	name = NormalizeName(name)
	if alias == "" {
		alias = ShortName(name)
	}
	out[strings.ToLower(alias)] = name
}

// parseTraitUse reads a trait use statement inside a class body and returns
// the trait names as written.
//
//	use HasFactory, Notifiable;
//	use A, B { A::hello insteadof B; }
func parseTraitUse(stmt string) []string {
	body := trimStatement(stmt, "use")
	if idx := strings.Index(body, "{"); idx >= 0 {
		body = body[:idx]
	}

	var names []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

// firstListedName returns the first name following keyword in a clause such
// as "extends Model" or "extends A, B".
func firstListedName(clause, keyword string) string {
	body := strings.TrimSpace(clause)
	if hasKeywordPrefix(body, keyword) {
		body = body[len(keyword):]
	}
	first, _, _ := strings.Cut(body, ",")
	return strings.TrimSpace(first)
}

func trimStatement(stmt, keyword string) string {
	body := strings.TrimSpace(stmt)
	if hasKeywordPrefix(body, keyword) {
		body = body[len(keyword):]
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, ";")
	return strings.TrimSpace(body)
}

func hasKeywordPrefix(s, keyword string) bool {
	if len(s) <= len(keyword) || !strings.EqualFold(s[:len(keyword)], keyword) {
		return false
	}
	next := s[len(keyword)]
	return next == ' ' || next == '\t' || next == '\n' || next == '\r'
}
