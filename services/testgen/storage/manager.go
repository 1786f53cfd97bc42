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
	"fmt"
	"sort"
	"sync"
)

// Well-known disk names.
const (
	// DiskLocal is where generated tests are written by default.
	DiskLocal = "local"

	// DiskBasePath is the project root, used to read coverage reports.
	DiskBasePath = "base_path"

	// DiskGCS is an optional bucket-backed disk.
	DiskGCS = "gcs"
)

// Manager holds the named disks of one run.
//
// Thread Safety:
//
//	Manager is safe for concurrent use.
type Manager struct {
	mu          sync.RWMutex
	disks       map[string]Disk
	defaultDisk string
}

// NewManager creates a Manager with the given disks. The first disk becomes
// the default unless SetDefault is called.
func NewManager(disks ...Disk) *Manager {
	m := &Manager{disks: make(map[string]Disk)}
	for _, d := range disks {
		m.Register(d)
	}
	return m
}

// Register adds or replaces a disk under its name.
func (m *Manager) Register(d Disk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disks[d.Name()] = d
	if m.defaultDisk == "" {
		m.defaultDisk = d.Name()
	}
}

// SetDefault selects the disk returned for an empty name.
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.disks[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDisk, name)
	}
	m.defaultDisk = name
	return nil
}

// Disk returns the disk registered under name, or the default for "".
func (m *Manager) Disk(name string) (Disk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if name == "" {
		name = m.defaultDisk
	}
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDisk, name)
	}
	return d, nil
}

// Names lists the registered disk names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.disks))
	for name := range m.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
