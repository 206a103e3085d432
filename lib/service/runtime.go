// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stagegate-io/stagegate/audit"
	"github.com/stagegate-io/stagegate/gate"
	"github.com/stagegate-io/stagegate/lib/config"
	"github.com/stagegate-io/stagegate/lib/stagedef"
	"github.com/stagegate-io/stagegate/lib/store"
	"github.com/stagegate-io/stagegate/lib/store/redisstore"
	"github.com/stagegate-io/stagegate/lib/tenant"
	"github.com/stagegate-io/stagegate/stream"
)

// Runtime holds the assembled StageGate layers. Every binary builds
// exactly one Runtime at startup and closes it on shutdown.
type Runtime struct {
	// Config is the validated configuration the Runtime was built
	// from.
	Config *config.Config

	// Store is the backing store connection.
	Store store.Store

	// Keys maps logical names to store keys, applying tenant
	// namespacing when tenancy is enabled.
	Keys *tenant.Keyspace

	// Stream bootstraps and publishes to pipeline event streams.
	Stream *stream.Service

	// Audit records gate requests and decisions.
	Audit *audit.Logger

	// Gate manages approval request lifecycle.
	Gate *gate.Dispatcher

	// Stages is the pipeline stage definition: the built-in
	// five-stage pipeline, or the file named by stages_file.
	Stages *stagedef.Definition

	// Logger is the runtime's structured logger.
	Logger *slog.Logger

	closer *redisstore.Store
}

// Open connects to Redis and assembles the StageGate layers on top
// of it. The connection is verified with a ping, so a bad address or
// password fails here rather than at first use. The caller must call
// Close when done.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	password, err := cfg.ResolveRedisPassword()
	if err != nil {
		return nil, fmt.Errorf("resolving redis password: %w", err)
	}

	st, err := redisstore.Open(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: password,
		DB:       cfg.Redis.DB,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	runtime, err := assemble(cfg, st, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	runtime.closer = st
	return runtime, nil
}

// assemble wires the layers on top of an already-connected store.
// Split from Open so tests can assemble a Runtime on an in-memory
// store.
func assemble(cfg *config.Config, st store.Store, logger *slog.Logger) (*Runtime, error) {
	keys := tenant.NewKeyspace(cfg.Tenancy.Enabled, tenant.Tenant(cfg.Tenancy.DefaultTenant))

	streams, err := stream.New(stream.Config{
		Store:           st,
		Keys:            keys,
		Logger:          logger,
		BootstrapMaxLen: cfg.Stream.BootstrapMaxLen,
		PublishMaxLen:   cfg.Stream.PublishMaxLen,
	})
	if err != nil {
		return nil, fmt.Errorf("building stream service: %w", err)
	}

	auditLog, err := audit.New(audit.Config{
		Store:        st,
		Keys:         keys,
		Logger:       logger,
		StreamMaxLen: cfg.Audit.StreamMaxLen,
	})
	if err != nil {
		return nil, fmt.Errorf("building audit logger: %w", err)
	}

	dispatcher, err := gate.New(gate.Config{
		Store:      st,
		Keys:       keys,
		Stream:     streams,
		Audit:      auditLog,
		Logger:     logger,
		StreamName: cfg.Stream.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("building gate dispatcher: %w", err)
	}

	stages, err := loadStages(cfg)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config: cfg,
		Store:  st,
		Keys:   keys,
		Stream: streams,
		Audit:  auditLog,
		Gate:   dispatcher,
		Stages: stages,
		Logger: logger,
	}, nil
}

// loadStages returns the stage definition from cfg.StagesFile, or
// the built-in pipeline when no file is configured. A definition
// that parses but fails validation reports every issue at once.
func loadStages(cfg *config.Config) (*stagedef.Definition, error) {
	if cfg.StagesFile == "" {
		return stagedef.Default(), nil
	}
	def, err := stagedef.ReadFile(cfg.StagesFile)
	if err != nil {
		return nil, err
	}
	if issues := stagedef.Validate(def); len(issues) > 0 {
		return nil, fmt.Errorf("invalid stage definition %s:\n  %s",
			cfg.StagesFile, strings.Join(issues, "\n  "))
	}
	return def, nil
}

// Close releases the store connection pool. Safe to call on a
// Runtime assembled without one.
func (r *Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ResolveTenant returns the tenant an invocation operates as: the
// override when one was given, otherwise the configured default.
func (r *Runtime) ResolveTenant(override string) (tenant.Tenant, error) {
	if override == "" {
		return tenant.Tenant(r.Config.Tenancy.DefaultTenant), nil
	}
	t := tenant.Tenant(override)
	if err := t.Validate(); err != nil {
		return "", err
	}
	if !r.Keys.Enabled() {
		return "", fmt.Errorf("--tenant %q given but tenancy is disabled in configuration", override)
	}
	return t, nil
}
