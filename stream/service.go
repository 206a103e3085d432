// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stagegate-io/stagegate/lib/clock"
	"github.com/stagegate-io/stagegate/lib/store"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

// Default log bounds. Bootstrap placeholders are trimmed tightly;
// the live publish path gets a much larger rolling window.
const (
	DefaultBootstrapMaxLen = 8
	DefaultPublishMaxLen   = 10000
)

// Config assembles a Service. Store and Keys are required; the rest
// default.
type Config struct {
	Store store.Store
	Keys  *tenant.Keyspace

	// Clock supplies the server-assigned publish timestamps. Nil
	// uses the real clock.
	Clock clock.Clock

	// Logger receives service log output. Nil uses slog.Default().
	Logger *slog.Logger

	// BootstrapMaxLen bounds streams created by Ensure. Zero uses
	// DefaultBootstrapMaxLen.
	BootstrapMaxLen int64

	// PublishMaxLen bounds the live publish path. Zero uses
	// DefaultPublishMaxLen.
	PublishMaxLen int64
}

// Service is the producer and administrative half of the event
// stream: it guarantees streams and consumer groups exist before any
// producer or consumer touches them, publishes entries with bounded
// growth, and exposes introspection. Consumption and acknowledgement
// belong to the worker pool, not here.
type Service struct {
	store           store.Store
	keys            *tenant.Keyspace
	clock           clock.Clock
	logger          *slog.Logger
	bootstrapMaxLen int64
	publishMaxLen   int64
}

// New validates the config and returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("stream: config missing Store")
	}
	if cfg.Keys == nil {
		return nil, fmt.Errorf("stream: config missing Keys")
	}
	s := &Service{
		store:           cfg.Store,
		keys:            cfg.Keys,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		bootstrapMaxLen: cfg.BootstrapMaxLen,
		publishMaxLen:   cfg.PublishMaxLen,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.bootstrapMaxLen <= 0 {
		s.bootstrapMaxLen = DefaultBootstrapMaxLen
	}
	if s.publishMaxLen <= 0 {
		s.publishMaxLen = DefaultPublishMaxLen
	}
	return s, nil
}

// Ensure makes sure the named stream exists. An existing stream is a
// no-op; a missing one is created by appending a placeholder entry
// under the tight bootstrap bound, so repeated bootstraps never grow
// the log. Fails closed: any store failure surfaces as an error.
func (s *Service) Ensure(ctx context.Context, tn tenant.Tenant, name string) error {
	key := s.keys.Stream(tn, name)

	_, err := s.store.Info(ctx, key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("stream: ensure %q: %w", name, err)
	}

	fields := map[string]string{
		fieldEventType: EventStreamInitialized,
		fieldTimestamp: s.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := s.store.Append(ctx, key, fields, s.bootstrapMaxLen); err != nil {
		return fmt.Errorf("stream: ensure %q: %w", name, err)
	}
	s.logger.Info("stream created", "stream", name, "tenant", s.keys.Resolve(tn).String())
	return nil
}

// CreateGroup creates a consumer group reading the stream's full
// history, creating the stream alongside when absent. A group that
// already exists is success, not an error: multiple service
// instances bootstrap the same groups concurrently at startup.
// Returns whether this call created the group.
func (s *Service) CreateGroup(ctx context.Context, tn tenant.Tenant, name, group string) (bool, error) {
	key := s.keys.Stream(tn, name)

	err := s.store.CreateGroup(ctx, key, group, "0")
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrGroupExists) {
		return false, nil
	}
	return false, fmt.Errorf("stream: create group %q on %q: %w", group, name, err)
}

// InitReport records the outcome of InitGroups per group.
type InitReport struct {
	// Created lists groups this call created.
	Created []string
	// Existing lists groups that were already present.
	Existing []string
}

// InitGroups ensures the stream exists and creates every group in
// the list, continuing past pre-existing groups. A genuine creation
// failure aborts and returns the partial report alongside the error,
// so the caller sees exactly how far initialization got.
func (s *Service) InitGroups(ctx context.Context, tn tenant.Tenant, name string, groups []string) (*InitReport, error) {
	if err := s.Ensure(ctx, tn, name); err != nil {
		return &InitReport{}, err
	}

	report := &InitReport{}
	for _, group := range groups {
		created, err := s.CreateGroup(ctx, tn, name, group)
		if err != nil {
			return report, fmt.Errorf("stream: init groups on %q: %w", name, err)
		}
		if created {
			report.Created = append(report.Created, group)
		} else {
			report.Existing = append(report.Existing, group)
		}
	}
	return report, nil
}

// Publish appends one event under the live-traffic bound and returns
// the assigned entry id. The server-assigned timestamp and the event
// type and session id are merged over the caller's fields, so a
// caller can never forge them.
func (s *Service) Publish(ctx context.Context, tn tenant.Tenant, name string, event Event) (string, error) {
	if event.Type == "" {
		return "", fmt.Errorf("stream: publish to %q: empty event type", name)
	}

	fields := make(map[string]string, len(event.Fields)+3)
	for k, v := range event.Fields {
		fields[k] = v
	}
	fields[fieldEventType] = event.Type
	fields[fieldSessionID] = event.SessionID
	fields[fieldTimestamp] = s.clock.Now().UTC().Format(time.RFC3339Nano)

	id, err := s.store.Append(ctx, s.keys.Stream(tn, name), fields, s.publishMaxLen)
	if err != nil {
		return "", fmt.Errorf("stream: publish %q to %q: %w", event.Type, name, err)
	}
	return id, nil
}

// StreamInfo is the introspection shape of one stream. A stream that
// was never created reports Exists false with everything else zero;
// that is a normal answer, not an error.
type StreamInfo struct {
	Name   string
	Exists bool
	Length int64
	First  *store.Entry
	Last   *store.Entry
	Groups []store.GroupInfo
}

// Info returns length, head and tail entries, and per-group consumer
// and delivery counts for observability.
func (s *Service) Info(ctx context.Context, tn tenant.Tenant, name string) (*StreamInfo, error) {
	logInfo, err := s.store.Info(ctx, s.keys.Stream(tn, name))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &StreamInfo{Name: name, Exists: false}, nil
		}
		return nil, fmt.Errorf("stream: info for %q: %w", name, err)
	}
	return &StreamInfo{
		Name:   name,
		Exists: true,
		Length: logInfo.Length,
		First:  logInfo.First,
		Last:   logInfo.Last,
		Groups: logInfo.Groups,
	}, nil
}
