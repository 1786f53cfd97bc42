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
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig configures a Google Cloud Storage disk.
type GCSConfig struct {
	Bucket string

	// Prefix is prepended to every object name, without a trailing slash.
	Prefix string

	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string

	// Endpoint overrides the storage API endpoint, e.g. for an emulator.
	Endpoint string
}

// GCSDisk stores files as objects in a bucket.
type GCSDisk struct {
	name   string
	cfg    GCSConfig
	client *storage.Client
	logger *slog.Logger
}

// NewGCSDisk creates a disk backed by a GCS bucket.
//
// Description:
//
//	Builds a storage client from the credentials file when one is given,
//	otherwise from application default credentials.
//
// Outputs:
//   - *GCSDisk: The disk. Close releases the client.
//   - error: Missing bucket, missing credentials file or client failure.
func NewGCSDisk(ctx context.Context, name string, cfg GCSConfig, logger *slog.Logger) (*GCSDisk, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs disk %q: bucket is required", name)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("gcs disk %q: service account key not accessible at %s: %w", name, cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &GCSDisk{name: name, cfg: cfg, client: client, logger: logger}, nil
}

// Name implements Disk.
func (d *GCSDisk) Name() string {
	return d.name
}

// Location implements Disk.
func (d *GCSDisk) Location(p string) string {
	return "gs://" + d.cfg.Bucket + "/" + d.objectName(p)
}

// Close releases the underlying client.
func (d *GCSDisk) Close() error {
	return d.client.Close()
}

// Put implements Disk.
func (d *GCSDisk) Put(ctx context.Context, p string, data []byte) error {
	cleaned, err := cleanPath(p)
	if err != nil {
		return err
	}
	name := d.objectName(cleaned)

	writer := d.client.Bucket(d.cfg.Bucket).Object(name).NewWriter(ctx)
	writer.ContentType = "text/plain; charset=utf-8"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("%w: gs://%s/%s: %v", ErrWriteFailed, d.cfg.Bucket, name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: closing gs://%s/%s: %v", ErrWriteFailed, d.cfg.Bucket, name, err)
	}

	d.logger.Debug("uploaded object",
		slog.String("disk", d.name),
		slog.String("bucket", d.cfg.Bucket),
		slog.String("object", name),
		slog.Int("size", len(data)))
	return nil
}

// Get implements Disk.
func (d *GCSDisk) Get(ctx context.Context, p string) ([]byte, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	name := d.objectName(cleaned)

	reader, err := d.client.Bucket(d.cfg.Bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, d.cfg.Bucket, name)
	}
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// Exists implements Disk.
func (d *GCSDisk) Exists(ctx context.Context, p string) (bool, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return false, err
	}

	_, err = d.client.Bucket(d.cfg.Bucket).Object(d.objectName(cleaned)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Files implements Disk.
func (d *GCSDisk) Files(ctx context.Context, dir string) ([]string, error) {
	cleaned, err := cleanPath(dir)
	if err != nil {
		return nil, err
	}
	prefix := d.objectName(cleaned) + "/"

	it := d.client.Bucket(d.cfg.Bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	files := []string{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs.Name == "" {
			// Synthetic directory entry.
			continue
		}
		files = append(files, path.Join(cleaned, strings.TrimPrefix(attrs.Name, prefix)))
	}
	sort.Strings(files)
	return files, nil
}

func (d *GCSDisk) objectName(p string) string {
	p = strings.TrimPrefix(p, "/")
	if d.cfg.Prefix == "" {
		return p
	}
	return d.cfg.Prefix + "/" + p
}
