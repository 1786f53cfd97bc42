// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/AleutianAI/aitestgen/cmd/aitestgen/config"
	"github.com/AleutianAI/aitestgen/pkg/logging"
	"github.com/AleutianAI/aitestgen/pkg/ux"
	"github.com/AleutianAI/aitestgen/services/llm"
	"github.com/AleutianAI/aitestgen/services/telemetry"
	"github.com/AleutianAI/aitestgen/services/testgen/coverage"
	"github.com/AleutianAI/aitestgen/services/testgen/discovery"
	"github.com/AleutianAI/aitestgen/services/testgen/extractor"
	"github.com/AleutianAI/aitestgen/services/testgen/generator"
	"github.com/AleutianAI/aitestgen/services/testgen/history"
	"github.com/AleutianAI/aitestgen/services/testgen/locator"
	"github.com/AleutianAI/aitestgen/services/testgen/storage"
)

// appNeeds selects the optional parts a command builds.
type appNeeds struct {
	llm     bool
	history bool

	// configure applies command flags before anything is built.
	configure func(cfg *config.AitestgenConfig)
}

// app is the wired set of services for one command run.
type app struct {
	cfg         *config.AitestgenConfig
	projectRoot string
	logging     *logging.Logger
	logger      *slog.Logger
	printer     *ux.Printer
	telemetry   *telemetry.Telemetry
	disks       *storage.Manager
	locator     *locator.Locator
	extractor   *extractor.Extractor
	llm         llm.LLMClient
	history     *history.Store
	closers     []func() error
}

func newApp(ctx context.Context, env *environment, flags *rootFlags, needs appNeeds) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.projectDir != "" {
		cfg.Project.Root = flags.projectDir
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.jsonLogs {
		cfg.Logging.JSON = true
	}
	if needs.configure != nil {
		needs.configure(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, printer: newPrinter(env, flags)}
	a.logging = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "aitestgen",
		JSON:    cfg.Logging.JSON,
		Writer:  env.errOut,
	})
	a.logger = a.logging.Slog()
	a.closers = append(a.closers, a.logging.Close)

	if err := a.init(ctx, env, needs); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, env *environment, needs appNeeds) error {
	cfg := a.cfg

	telCfg := cfg.Telemetry
	telCfg.Writer = env.errOut
	tel, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.telemetry = tel
	a.closers = append(a.closers, func() error { return tel.Shutdown(context.Background()) })

	root, err := filepath.Abs(config.ExpandPath(cfg.Project.Root))
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	a.projectRoot = root

	if err := a.initStorage(ctx); err != nil {
		return err
	}

	opts := []locator.Option{
		locator.WithSourceRoots(cfg.Project.SourceRoots...),
		locator.WithLogger(a.logger),
	}
	if cfg.Project.IncludeVendor {
		opts = append(opts, locator.WithExcludes(withoutVendor(locator.DefaultExcludes)...))
	}
	a.locator = locator.New(root, opts...)
	a.extractor = extractor.New(extractor.WithLogger(a.logger))

	if needs.llm {
		client, err := env.newLLM(cfg, a.logger)
		if err != nil {
			return fmt.Errorf("init llm: %w", err)
		}
		a.llm = client
	}

	if needs.history && cfg.History.Enabled {
		hcfg := history.DefaultConfig(config.ExpandPath(cfg.History.Dir))
		hcfg.Logger = a.logger
		store, err := history.Open(hcfg)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		a.history = store
		a.closers = append(a.closers, store.Close)
	}
	return nil
}

func (a *app) initStorage(ctx context.Context) error {
	cfg := a.cfg
	localRoot := config.ExpandPath(cfg.Storage.LocalRoot)
	if !filepath.IsAbs(localRoot) {
		localRoot = filepath.Join(a.projectRoot, localRoot)
	}

	a.disks = storage.NewManager(
		storage.NewLocalDisk(storage.DiskLocal, localRoot, nil, a.logger),
		storage.NewLocalDisk(storage.DiskBasePath, a.projectRoot, nil, a.logger),
	)

	if cfg.Storage.GCS.Enabled() {
		gcs, err := storage.NewGCSDisk(ctx, storage.DiskGCS, storage.GCSConfig{
			Bucket:          cfg.Storage.GCS.Bucket,
			Prefix:          cfg.Storage.GCS.Prefix,
			CredentialsFile: config.ExpandPath(cfg.Storage.GCS.CredentialsFile),
			Endpoint:        cfg.Storage.GCS.Endpoint,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("init gcs disk: %w", err)
		}
		a.disks.Register(gcs)
		a.closers = append(a.closers, gcs.Close)
	}

	if err := a.disks.SetDefault(cfg.Generation.Disk); err != nil {
		return fmt.Errorf("generation disk: %w", err)
	}
	return nil
}

func (a *app) finder(observer discovery.Observer) *discovery.Finder {
	if observer == nil {
		observer = discovery.NewLogObserver(a.logger)
	}
	return discovery.NewFinder(a.locator, a.extractor, a.llm,
		discovery.NewConfig(a.cfg.DiscoveryOptions()...), observer)
}

func (a *app) generator() *generator.Generator {
	finderCfg := discovery.NewConfig(a.cfg.DiscoveryOptions()...)
	opts := []generator.GeneratorOption{
		generator.WithLogger(a.logger),
		generator.WithDiscoveryModel(finderCfg.Model),
	}
	if a.history != nil {
		opts = append(opts, generator.WithHistory(a.history))
	}
	return generator.New(a.finder(nil), a.llm, a.disks, a.cfg.GeneratorConfig(), opts...)
}

func (a *app) coverageParser() *coverage.Parser {
	return coverage.NewParser(a.disks, a.logger)
}

// Close releases everything in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func withoutVendor(patterns []string) []string {
	return slices.DeleteFunc(slices.Clone(patterns), func(p string) bool {
		return p == "vendor/**"
	})
}
