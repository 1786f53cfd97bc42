// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	runPrefix  = "run:"
	timePrefix = "time:"
)

// Run is one recorded test generation.
type Run struct {
	ID              string              `json:"id" yaml:"id"`
	ClassName       string              `json:"class_name" yaml:"class_name"`
	Methods         []string            `json:"methods" yaml:"methods"`
	OutputPath      string              `json:"output_path" yaml:"output_path"`
	Disk            string              `json:"disk" yaml:"disk"`
	Dependencies    map[string][]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	DiscoveryModel  string              `json:"discovery_model" yaml:"discovery_model"`
	GenerationModel string              `json:"generation_model" yaml:"generation_model"`
	CreatedAtMilli  int64               `json:"created_at_milli" yaml:"created_at_milli"`
	DurationMilli   int64               `json:"duration_milli" yaml:"duration_milli"`
}

// CreatedAt returns the creation time.
func (r *Run) CreatedAt() time.Time {
	return time.UnixMilli(r.CreatedAtMilli)
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return time.Duration(r.DurationMilli) * time.Millisecond
}

// Store reads and writes runs.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	db     *DB
	owned  bool
	now    func() time.Time
	mu     sync.RWMutex
	closed bool
}

// NewStore wraps an open database. Close on the store does not close db.
func NewStore(db *DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open opens a database from cfg and returns a store that owns it.
func Open(cfg Config) (*Store, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	s := NewStore(db)
	s.owned = true
	return s, nil
}

// Record stores run, assigning an ID and creation time when unset.
//
// Outputs:
//
//	error - ErrInvalidRun without a class name, ErrStoreClosed, or a
//	        database error.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run == nil || strings.TrimSpace(run.ClassName) == "" {
		return fmt.Errorf("%w: class name is required", ErrInvalidRun)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAtMilli == 0 {
		run.CreatedAtMilli = s.now().UnixMilli()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	return s.db.update(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(runKey(run.ID), data); err != nil {
			return err
		}
		return txn.Set(timeKey(run.CreatedAtMilli, run.ID), []byte(run.ID))
	})
}

// Get returns the run with the given ID, or ErrRunNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var run *Run
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		r, err := getRun(txn, id)
		run = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	var runs []*Run
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(timePrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(timePrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix([]byte(timePrefix)); it.Next() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			run, err := getRun(txn, string(id))
			if errors.Is(err, ErrRunNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close closes the store and, when the store opened it, the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func getRun(txn *badger.Txn, id string) (*Run, error) {
	item, err := txn.Get(runKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var run Run
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &run)
	})
	if err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

func runKey(id string) []byte {
	return []byte(runPrefix + id)
}

// timeKey sorts by creation time, then by ID.
func timeKey(createdAtMilli int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%016d:%s", timePrefix, createdAtMilli, id))
}
