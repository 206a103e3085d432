// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"context"
	"fmt"

	"github.com/stagegate-io/stagegate/lib/tenant"
	"github.com/stagegate-io/stagegate/stream"
)

// SweepExpired transitions every pending request whose deadline has
// passed to EXPIRED and publishes a gate_expired event for each. A
// decision racing the sweep wins: the status swap refuses the expiry
// and the sweep moves on. Expiry writes no audit entry; the trail
// records human actions, and an expired request is exactly a request
// entry with no decision entry after it.
//
// Returns the requests this call expired. The sweep has no internal
// schedule; the sweeper binary owns the interval.
func (d *Dispatcher) SweepExpired(ctx context.Context, tn tenant.Tenant) ([]*Request, error) {
	now := d.clock.Now().UTC()
	ids, err := d.store.IndexRangeMax(ctx, d.keys.PendingIndex(tn), timeScore(now))
	if err != nil {
		return nil, fmt.Errorf("gate: ranging pending index: %w", err)
	}

	var expired []*Request
	for _, id := range ids {
		key := d.keys.Request(tn, id)
		swapped, err := d.store.SwapField(ctx, key, fieldStatus, string(StatusPending), string(StatusExpired), nil)
		if err != nil {
			return expired, fmt.Errorf("gate: expiring %s: %w", id, err)
		}
		// The index entry goes regardless of who won the swap;
		// removal is idempotent and a racing decision removes it
		// too.
		if err := d.store.IndexRemove(ctx, d.keys.PendingIndex(tn), id); err != nil {
			return expired, fmt.Errorf("gate: unindexing %s: %w", id, err)
		}
		if !swapped {
			continue
		}

		request, err := d.load(ctx, key, id)
		if err != nil {
			return expired, err
		}

		// The expiry announcement carries only the common fields;
		// consumers resolve anything further through the request
		// record.
		if _, err := d.stream.Publish(ctx, tn, d.streamName, stream.Event{
			Type:      stream.EventGateExpired,
			SessionID: request.SessionID,
			Fields: map[string]string{
				eventFieldRequestID: request.ID,
				eventFieldGateType:  string(request.Type),
			},
		}); err != nil {
			return expired, err
		}

		d.logger.Info("gate expired",
			"request", request.ID,
			"task", request.TaskID,
			"gate_type", string(request.Type),
			"tenant", d.keys.Resolve(tn).String(),
		)
		expired = append(expired, request)
	}
	return expired, nil
}
