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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var finalOutputPattern = regexp.MustCompile(`(?s)<final_output>(.*?)</final_output>`)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ParseDiscoveryResponse extracts the class to methods mapping from a model
// response.
//
// Description:
//
//	Only the first <final_output>...</final_output> section is read; the
//	scratchpad and anything else is ignored. The section may be wrapped in
//	a Markdown code fence. It must hold a JSON object whose values are
//	arrays of method names. Keys keep their order in the response, repeated
//	keys are merged, and nested arrays are flattened. Entries that are not
//	strings are skipped. A single string value counts as a one-method list.
//
// Outputs:
//   - []ClassMethods: Pairs in response order. Empty for "{}".
//   - error: ErrNoFinalOutput or ErrMalformedJSON.
func ParseDiscoveryResponse(response string) ([]ClassMethods, error) {
	match := finalOutputPattern.FindStringSubmatch(response)
	if match == nil {
		return nil, ErrNoFinalOutput
	}

	body := strings.TrimSpace(match[1])
	if fenced := fencePattern.FindStringSubmatch(body); fenced != nil {
		body = strings.TrimSpace(fenced[1])
	}
	if body == "" {
		return nil, ErrNoFinalOutput
	}

	pairs, err := decodeOrderedObject(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return pairs, nil
}

// decodeOrderedObject reads a JSON object token by token so that key order
// survives decoding.
func decodeOrderedObject(body string) ([]ClassMethods, error) {
	dec := json.NewDecoder(strings.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object, got %v", tok)
	}

	var (
		pairs []ClassMethods
		index = make(map[string]int)
	)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		methods, err := methodNames(raw)
		if err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}

		class := normalizeClass(key)
		if i, seen := index[class]; seen {
			pairs[i].Methods = append(pairs[i].Methods, methods...)
			continue
		}
		index[class] = len(pairs)
		pairs = append(pairs, ClassMethods{Class: class, Methods: methods})
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return pairs, nil
}

func methodNames(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return []string{}, nil
		}
		return []string{single}, nil
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.New("expected an array of method names")
	}

	names := make([]string, 0, len(list))
	return appendNames(names, list), nil
}

// appendNames collects string entries, descending into nested arrays.
func appendNames(names []string, list []any) []string {
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if v != "" {
				names = append(names, v)
			}
		case []any:
			names = appendNames(names, v)
		}
	}
	return names
}
