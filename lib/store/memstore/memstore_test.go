// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package memstore

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stagegate-io/stagegate/lib/clock"
	"github.com/stagegate-io/stagegate/lib/store"
)

func testMemory() *Memory {
	return New(clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	m := testMemory()
	ctx := context.Background()

	var prev string
	for i := 0; i < 5; i++ {
		id, err := m.Append(ctx, "log", map[string]string{"n": "x"}, 0)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if id <= prev {
			t.Fatalf("id %q not greater than previous %q", id, prev)
		}
		prev = id
	}
}

func TestAppendTrimsToMaxLen(t *testing.T) {
	m := testMemory()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := m.Append(ctx, "log", map[string]string{"n": "x"}, 4); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	info, err := m.Info(ctx, "log")
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Length != 4 {
		t.Fatalf("length after trim = %d, want 4", info.Length)
	}
	if info.First.ID >= info.Last.ID {
		t.Fatalf("first id %q not before last id %q", info.First.ID, info.Last.ID)
	}
}

func TestCreateGroupSecondCallReportsExists(t *testing.T) {
	m := testMemory()
	ctx := context.Background()

	if err := m.CreateGroup(ctx, "log", "workers", "0"); err != nil {
		t.Fatalf("first CreateGroup: %v", err)
	}
	err := m.CreateGroup(ctx, "log", "workers", "0")
	if !errors.Is(err, store.ErrGroupExists) {
		t.Fatalf("second CreateGroup = %v, want ErrGroupExists", err)
	}
}

func TestCreateGroupCreatesStream(t *testing.T) {
	m := testMemory()
	ctx := context.Background()

	if err := m.CreateGroup(ctx, "log", "workers", "0"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	info, err := m.Info(ctx, "log")
	if err != nil {
		t.Fatalf("Info after CreateGroup: %v", err)
	}
	if info.Length != 0 {
		t.Fatalf("new stream length = %d, want 0", info.Length)
	}
	if len(info.Groups) != 1 || info.Groups[0].Name != "workers" {
		t.Fatalf("groups = %+v, want single group workers", info.Groups)
	}
}

func TestInfoMissingStreamReturnsNotFound(t *testing.T) {
	m := testMemory()
	_, err := m.Info(context.Background(), "absent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Info(absent) = %v, want ErrNotFound", err)
	}
}

func TestIndexRangeMaxOrdersByScore(t *testing.T) {
	m := testMemory()
	ctx := context.Background()

	if err := m.IndexAdd(ctx, "idx", "late", 300); err != nil {
		t.Fatalf("IndexAdd: %v", err)
	}
	if err := m.IndexAdd(ctx, "idx", "early", 100); err != nil {
		t.Fatalf("IndexAdd: %v", err)
	}
	if err := m.IndexAdd(ctx, "idx", "never", math.Inf(1)); err != nil {
		t.Fatalf("IndexAdd: %v", err)
	}

	got, err := m.IndexRangeMax(ctx, "idx", 200)
	if err != nil {
		t.Fatalf("IndexRangeMax: %v", err)
	}
	if len(got) != 1 || got[0] != "early" {
		t.Fatalf("IndexRangeMax(200) = %v, want [early]", got)
	}

	all, err := m.IndexMembers(ctx, "idx")
	if err != nil {
		t.Fatalf("IndexMembers: %v", err)
	}
	want := []string{"early", "late", "never"}
	if len(all) != len(want) {
		t.Fatalf("IndexMembers = %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("IndexMembers = %v, want %v", all, want)
		}
	}
}

func TestIndexRemoveAbsentMemberIsNoError(t *testing.T) {
	m := testMemory()
	if err := m.IndexRemove(context.Background(), "idx", "ghost"); err != nil {
		t.Fatalf("IndexRemove(absent) = %v, want nil", err)
	}
}

func TestGetRecordAbsentYieldsEmptyMap(t *testing.T) {
	m := testMemory()
	fields, err := m.GetRecord(context.Background(), "absent")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("GetRecord(absent) = %v, want empty", fields)
	}
}

func TestSwapFieldAppliesOnlyOnMatch(t *testing.T) {
	m := testMemory()
	ctx := context.Background()

	if err := m.PutRecord(ctx, "rec", map[string]string{"status": "PENDING"}); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}

	swapped, err := m.SwapField(ctx, "rec", "status", "APPROVED", "EXPIRED", nil)
	if err != nil {
		t.Fatalf("SwapField: %v", err)
	}
	if swapped {
		t.Fatal("SwapField applied with mismatched current value")
	}

	swapped, err = m.SwapField(ctx, "rec", "status", "PENDING", "APPROVED", map[string]string{"reviewer": "ada"})
	if err != nil {
		t.Fatalf("SwapField: %v", err)
	}
	if !swapped {
		t.Fatal("SwapField did not apply with matching current value")
	}

	fields, err := m.GetRecord(ctx, "rec")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if fields["status"] != "APPROVED" || fields["reviewer"] != "ada" {
		t.Fatalf("record after swap = %v", fields)
	}
}

func TestSwapFieldAbsentRecordNeverSwaps(t *testing.T) {
	m := testMemory()
	swapped, err := m.SwapField(context.Background(), "absent", "status", "", "X", nil)
	if err != nil {
		t.Fatalf("SwapField: %v", err)
	}
	if swapped {
		t.Fatal("SwapField applied on absent record")
	}
}

func TestSwapFieldExactlyOneWinnerUnderContention(t *testing.T) {
	m := testMemory()
	ctx := context.Background()

	if err := m.PutRecord(ctx, "rec", map[string]string{"status": "PENDING"}); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan string, racers)
	for i := 0; i < racers; i++ {
		target := "APPROVED"
		if i%2 == 1 {
			target = "REJECTED"
		}
		wg.Add(1)
		go func(next string) {
			defer wg.Done()
			swapped, err := m.SwapField(ctx, "rec", "status", "PENDING", next, nil)
			if err != nil {
				t.Errorf("SwapField: %v", err)
				return
			}
			if swapped {
				wins <- next
			}
		}(target)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("%d swaps applied, want exactly 1", len(winners))
	}

	fields, err := m.GetRecord(ctx, "rec")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if fields["status"] != winners[0] {
		t.Fatalf("stored status %q does not match winning swap %q", fields["status"], winners[0])
	}
}

func TestListAppendPreservesOrder(t *testing.T) {
	m := testMemory()
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		if err := m.ListAppend(ctx, "list", v); err != nil {
			t.Fatalf("ListAppend: %v", err)
		}
	}
	got, err := m.ListRange(ctx, "list")
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("ListRange = %v, want [a b c]", got)
	}
}
