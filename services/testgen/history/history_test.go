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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndGet(t *testing.T) {
	s := openTestStore(t)
	s.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	ctx := context.Background()

	run := &Run{
		ClassName:       `App\Models\User`,
		Methods:         []string{"get_my_book"},
		OutputPath:      "generated_tests/User20240102030405Test.php",
		Disk:            "local",
		Dependencies:    map[string][]string{`App\Models\Book`: {"get_title"}},
		DiscoveryModel:  "gpt-4o-mini",
		GenerationModel: "claude-3-5-sonnet-20240620",
		DurationMilli:   1500,
	}
	require.NoError(t, s.Record(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, int64(1_700_000_000_000), run.CreatedAtMilli)

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.Equal(t, 1500*time.Millisecond, got.Duration())
	assert.Equal(t, time.UnixMilli(1_700_000_000_000), got.CreatedAt())
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_RecordInvalid(t *testing.T) {
	s := openTestStore(t)

	assert.ErrorIs(t, s.Record(context.Background(), &Run{}), ErrInvalidRun)
	assert.ErrorIs(t, s.Record(context.Background(), nil), ErrInvalidRun)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := &Run{
			ID:             fmt.Sprintf("run-%d", i),
			ClassName:      fmt.Sprintf(`App\C%d`, i),
			CreatedAtMilli: int64(1000 + i),
		}
		require.NoError(t, s.Record(ctx, run))
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"run-4", "run-3", "run-2", "run-1", "run-0"}, ids)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-4", limited[0].ID)
	assert.Equal(t, "run-3", limited[1].ID)
}

func TestStore_Closed(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.ErrorIs(t, s.Record(ctx, &Run{ClassName: `App\A`}), ErrStoreClosed)
	_, err = s.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.List(ctx, 0)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStore_CancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Record(ctx, &Run{ClassName: `App\A`})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenDB_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	run := &Run{ID: "persisted", ClassName: `App\A`}
	require.NoError(t, s.Record(ctx, run))
	require.NoError(t, s.Close())

	reopened, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, `App\A`, got.ClassName)
}

func TestOpenDB_RequiresDir(t *testing.T) {
	_, err := OpenDB(Config{})
	assert.Error(t, err)
}

func TestDB_CloseStopsGC(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)

	cfg := DefaultConfig(t.TempDir())
	cfg.GCInterval = 5 * time.Millisecond
	cfg.SyncWrites = false

	db, err := OpenDB(cfg)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, db.Close())
}
