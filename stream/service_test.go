// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stagegate-io/stagegate/lib/clock"
	"github.com/stagegate-io/stagegate/lib/store/memstore"
	"github.com/stagegate-io/stagegate/lib/tenant"
)

func newTestService(t *testing.T) (*Service, *memstore.Memory, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	mem := memstore.New(clk)
	svc, err := New(Config{
		Store:  mem,
		Keys:   tenant.NewKeyspace(false, tenant.Default),
		Clock:  clk,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc, mem, clk
}

func TestNewRequiresStoreAndKeys(t *testing.T) {
	if _, err := New(Config{Keys: tenant.NewKeyspace(false, tenant.Default)}); err == nil {
		t.Error("expected error for missing Store")
	}
	if _, err := New(Config{Store: memstore.New(nil)}); err == nil {
		t.Error("expected error for missing Keys")
	}
}

func TestEnsureCreatesStreamOnce(t *testing.T) {
	svc, mem, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Ensure(ctx, "", "pipeline"); err != nil {
		t.Fatal(err)
	}
	entries := mem.Entries("sg:stream:pipeline")
	if len(entries) != 1 {
		t.Fatalf("entries after first ensure = %d, want 1", len(entries))
	}
	if got := entries[0].Fields[fieldEventType]; got != EventStreamInitialized {
		t.Errorf("placeholder event_type = %q, want %q", got, EventStreamInitialized)
	}
	if entries[0].Fields[fieldTimestamp] == "" {
		t.Error("placeholder has no timestamp")
	}

	// A second ensure must not append again.
	if err := svc.Ensure(ctx, "", "pipeline"); err != nil {
		t.Fatal(err)
	}
	if got := len(mem.Entries("sg:stream:pipeline")); got != 1 {
		t.Errorf("entries after second ensure = %d, want 1", got)
	}
}

func TestCreateGroupIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateGroup(ctx, "", "pipeline", "discovery-workers")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first CreateGroup: created = false, want true")
	}

	created, err = svc.CreateGroup(ctx, "", "pipeline", "discovery-workers")
	if err != nil {
		t.Fatalf("second CreateGroup: %v", err)
	}
	if created {
		t.Error("second CreateGroup: created = true, want false")
	}
}

func TestInitGroupsReportsCreatedAndExisting(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	groups := []string{"discovery-workers", "design-workers", "development-workers"}

	report, err := svc.InitGroups(ctx, "", "pipeline", groups)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Created) != 3 || len(report.Existing) != 0 {
		t.Errorf("first init: created %v existing %v, want all created", report.Created, report.Existing)
	}

	report, err = svc.InitGroups(ctx, "", "pipeline", groups)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Created) != 0 || len(report.Existing) != 3 {
		t.Errorf("second init: created %v existing %v, want all existing", report.Created, report.Existing)
	}
}

func TestPublishMergesReservedFields(t *testing.T) {
	svc, mem, clk := newTestService(t)
	ctx := context.Background()

	id, err := svc.Publish(ctx, "", "pipeline", Event{
		Type:      EventStageStarted,
		SessionID: "session-7",
		Fields: map[string]string{
			fieldTaskID: "task-42",
			// Attempts to smuggle reserved fields lose to the server.
			fieldEventType: "forged",
			fieldTimestamp: "1999-01-01T00:00:00Z",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("publish returned empty id")
	}

	entries := mem.Entries("sg:stream:pipeline")
	last := entries[len(entries)-1]
	if got := last.Fields[fieldEventType]; got != EventStageStarted {
		t.Errorf("event_type = %q, want %q", got, EventStageStarted)
	}
	if got := last.Fields[fieldSessionID]; got != "session-7" {
		t.Errorf("session_id = %q, want session-7", got)
	}
	if got := last.Fields[fieldTaskID]; got != "task-42" {
		t.Errorf("task_id = %q, want task-42", got)
	}
	want := clk.Now().UTC().Format(time.RFC3339Nano)
	if got := last.Fields[fieldTimestamp]; got != want {
		t.Errorf("timestamp = %q, want %q", got, want)
	}
}

func TestPublishRejectsEmptyType(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Publish(context.Background(), "", "pipeline", Event{SessionID: "s"})
	if err == nil {
		t.Fatal("expected error for empty event type")
	}
}

func TestPublishBoundsStreamLength(t *testing.T) {
	clk := clock.Fake(time.Unix(1700000000, 0))
	mem := memstore.New(clk)
	svc, err := New(Config{
		Store:         mem,
		Keys:          tenant.NewKeyspace(false, tenant.Default),
		Clock:         clk,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		PublishMaxLen: 3,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if _, err := svc.Publish(ctx, "", "pipeline", Event{Type: EventStageCompleted}); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(mem.Entries("sg:stream:pipeline")); got != 3 {
		t.Errorf("stream length = %d, want trimmed to 3", got)
	}
}

func TestInfoMissingStream(t *testing.T) {
	svc, _, _ := newTestService(t)

	info, err := svc.Info(context.Background(), "", "absent")
	if err != nil {
		t.Fatalf("info on missing stream: %v", err)
	}
	if info.Exists {
		t.Error("Exists = true for missing stream")
	}
	if info.Length != 0 || info.First != nil || info.Last != nil {
		t.Error("missing stream should report zero contents")
	}
}

func TestInfoReportsGroupsAndBounds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.InitGroups(ctx, "", "pipeline", []string{"validation-workers"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Publish(ctx, "", "pipeline", Event{Type: EventStageStarted, SessionID: "s1"}); err != nil {
		t.Fatal(err)
	}

	info, err := svc.Info(ctx, "", "pipeline")
	if err != nil {
		t.Fatal(err)
	}
	if !info.Exists {
		t.Fatal("Exists = false after init")
	}
	if info.Length != 2 { // placeholder + one published event
		t.Errorf("Length = %d, want 2", info.Length)
	}
	if info.First == nil || info.Last == nil {
		t.Fatal("First/Last not populated")
	}
	if info.First.ID == info.Last.ID {
		t.Error("First and Last should differ with two entries")
	}
	if len(info.Groups) != 1 || info.Groups[0].Name != "validation-workers" {
		t.Errorf("Groups = %+v, want one validation-workers group", info.Groups)
	}
}

func TestTenantStreamsAreIsolated(t *testing.T) {
	clk := clock.Fake(time.Unix(1700000000, 0))
	mem := memstore.New(clk)
	svc, err := New(Config{
		Store:  mem,
		Keys:   tenant.NewKeyspace(true, tenant.Default),
		Clock:  clk,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := svc.Publish(ctx, "acme", "pipeline", Event{Type: EventStageStarted}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Publish(ctx, "globex", "pipeline", Event{Type: EventStageStarted}); err != nil {
		t.Fatal(err)
	}

	if got := len(mem.Entries("sg:acme:stream:pipeline")); got != 1 {
		t.Errorf("acme entries = %d, want 1", got)
	}
	if got := len(mem.Entries("sg:globex:stream:pipeline")); got != 1 {
		t.Errorf("globex entries = %d, want 1", got)
	}

	info, err := svc.Info(ctx, "acme", "pipeline")
	if err != nil {
		t.Fatal(err)
	}
	if info.Length != 1 {
		t.Errorf("acme Length = %d, want 1", info.Length)
	}
}
