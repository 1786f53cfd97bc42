// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage provides the named disks generated tests are written to
// and coverage reports are read from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Sentinel errors for disk operations.
var (
	// ErrNotFound indicates the requested file does not exist on the disk.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidPath indicates a path that is empty or escapes the disk root.
	ErrInvalidPath = errors.New("invalid path")

	// ErrUnknownDisk indicates no disk is registered under the requested name.
	ErrUnknownDisk = errors.New("unknown disk")

	// ErrWriteFailed indicates a write could not be completed.
	ErrWriteFailed = errors.New("write failed")
)

// Disk is a logical storage area addressed by slash-separated relative paths.
type Disk interface {
	// Name returns the name the disk is registered under.
	Name() string

	// Put writes data to path, replacing any existing file.
	Put(ctx context.Context, path string, data []byte) error

	// Get reads the file at path. A missing file yields ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Files lists the files directly inside dir, sorted.
	Files(ctx context.Context, dir string) ([]string, error)

	// Location returns a human readable location for path, such as an
	// absolute file path or a gs:// URI.
	Location(path string) string
}

// cleanPath normalizes a disk path and rejects paths outside the disk.
func cleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	if strings.HasPrefix(p, "../") || p == ".." || strings.Contains(p, "/../") {
		return "", fmt.Errorf("%w: %q escapes the disk root", ErrInvalidPath, p)
	}
	return cleaned, nil
}
