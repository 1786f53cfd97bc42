// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coverage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// ReportHandler receives each parse of a watched report.
type ReportHandler func(report *Report, err error)

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce is how long to wait after the last change before parsing.
	// Default: 200ms
	Debounce time.Duration

	// FS reads the report. Default: the OS filesystem.
	FS afero.Fs
}

// Watch parses the report at path now and again after every change until
// ctx is cancelled.
//
// Description:
//
//	The containing directory is watched rather than the file so reports
//	replaced by rename are still seen. Bursts of events are collapsed into
//	one parse per Debounce window. A missing report is passed to fn as
//	ErrReadReport and watching continues.
//
// Outputs:
//   - error: Non-nil only if the watcher cannot be set up. Returns nil
//     once ctx is cancelled.
func (p *Parser) Watch(ctx context.Context, path string, fn ReportHandler, opts *WatchOptions) error {
	if opts == nil {
		opts = &WatchOptions{}
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	parse := func() {
		data, err := afero.ReadFile(fs, abs)
		if err != nil {
			fn(nil, fmt.Errorf("%w: %s: %v", ErrReadReport, abs, err))
			return
		}
		fn(ParseBytes(data))
	}
	parse()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			parse()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("coverage watcher error", slog.String("error", err.Error()))
		}
	}
}
