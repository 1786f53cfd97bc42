// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// tempSuffix marks in-flight writes.
const tempSuffix = ".aitestgen.tmp"

// LocalDisk stores files below a root directory of an afero filesystem.
//
// Description:
//
//	Writes are atomic: content goes to a temp file next to the target and
//	is renamed into place, so readers never observe a partial test file.
//	Parent directories are created as needed.
//
// Thread Safety:
//
//	LocalDisk is safe for concurrent use as long as the underlying afero.Fs is.
type LocalDisk struct {
	name   string
	root   string
	fs     afero.Fs
	logger *slog.Logger
}

// NewLocalDisk creates a disk rooted at root on fs. A nil fs uses the OS
// filesystem and a nil logger uses slog.Default().
func NewLocalDisk(name, root string, fs afero.Fs, logger *slog.Logger) *LocalDisk {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &LocalDisk{
		name:   name,
		root:   root,
		fs:     afero.NewBasePathFs(fs, root),
		logger: logger,
	}
}

// Name implements Disk.
func (d *LocalDisk) Name() string {
	return d.name
}

// Location implements Disk.
func (d *LocalDisk) Location(p string) string {
	cleaned, err := cleanPath(p)
	if err != nil {
		return filepath.Join(d.root, p)
	}
	return filepath.Join(d.root, filepath.FromSlash(cleaned))
}

// Put implements Disk.
func (d *LocalDisk) Put(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := cleanPath(p)
	if err != nil {
		return err
	}

	if err := d.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		d.logger.Error("failed to create directory",
			slog.String("disk", d.name),
			slog.String("path", path.Dir(target)),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: create directory: %v", ErrWriteFailed, err)
	}

	temp := target + tempSuffix
	if err := afero.WriteFile(d.fs, temp, data, 0o644); err != nil {
		d.logger.Error("failed to write temp file",
			slog.String("disk", d.name),
			slog.String("path", temp),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: write temp: %v", ErrWriteFailed, err)
	}

	if err := d.fs.Rename(temp, target); err != nil {
		_ = d.fs.Remove(temp)
		d.logger.Error("failed to rename temp file",
			slog.String("disk", d.name),
			slog.String("temp", temp),
			slog.String("target", target),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: rename: %v", ErrWriteFailed, err)
	}

	d.logger.Debug("wrote file",
		slog.String("disk", d.name),
		slog.String("path", target),
		slog.Int("size", len(data)))
	return nil
}

// Get implements Disk.
func (d *LocalDisk) Get(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := cleanPath(p)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(d.fs, target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Exists implements Disk.
func (d *LocalDisk) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	target, err := cleanPath(p)
	if err != nil {
		return false, err
	}
	return afero.Exists(d.fs, target)
}

// Files implements Disk.
func (d *LocalDisk) Files(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := cleanPath(dir)
	if err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(d.fs, target)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) == path.Ext(tempSuffix) {
			continue
		}
		files = append(files, path.Join(target, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
