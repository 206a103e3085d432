// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Production code accepts a Clock instead of calling time.Now,
// time.After, time.NewTicker, or time.Sleep directly. Real() provides
// standard library behavior; Fake() provides a deterministic clock
// that advances only when the test says so.
//
// The expiry sweep is the main consumer: a gate request's deadline
// comparison and the sweeper's interval ticker both run against the
// injected clock, so tests pin "now", create a request with a known
// TTL, advance past it, and observe exactly one expiry.
//
// Wiring pattern:
//
//	d, err := gate.New(gate.Config{Clock: clock.Real(), ...})
//
// and in tests:
//
//	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
//	d, err := gate.New(gate.Config{Clock: fake, ...})
//	fake.Advance(2 * time.Hour)
//
// When a goroutine registers its timer asynchronously, use
// WaitForTimers before Advance to eliminate the registration race.
package clock
