// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotRotation(t *testing.T) {
	sink := New(1)
	defer func() { _ = sink.Close() }()
	sink.StatCollect(time.Hour) // armed, but ticks are driven manually below

	first := sink.StatsFirst()
	assert.Same(t, first, sink.StatsCurrent(), "the anchor starts as the current snapshot")

	sink.sum.Total++
	sink.current().Total++

	sink.statTick()
	assert.Len(t, sink.Snapshots(), 2)
	assert.Same(t, first, sink.StatsCurrent().Prev, "the new snapshot links back to the anchor")
	assert.Same(t, first.Next, sink.StatsCurrent(), "the anchor links forward to the new snapshot")

	sink.sum.Total++
	sink.current().Total++
	sink.statTick()

	var total uint64
	for snap := sink.StatsFirst(); snap != nil; snap = snap.Next {
		total += snap.Total
	}
	assert.Equal(t, sink.StatsSum().Total, total, "the sum must equal the chain total")

	sink.StatFinish()
}

func TestStatFinishDropsStaleTicks(t *testing.T) {
	sink := New(1)
	defer func() { _ = sink.Close() }()

	sink.StatCollect(time.Hour)
	sink.StatFinish()

	// a tick queued before StatFinish must not grow the chain
	sink.events.Append(&statTickEvent{})
	sink.RunNowait()
	assert.Len(t, sink.Snapshots(), 1)

	// snapshots survive StatFinish until the engine is freed
	assert.NotNil(t, sink.StatsFirst())
}

func TestStatCollectIsIdempotent(t *testing.T) {
	sink := New(1)
	defer func() { _ = sink.Close() }()

	sink.StatCollect(time.Hour)
	stop := sink.statStop
	sink.StatCollect(time.Hour)
	assert.Equal(t, stop, sink.statStop, "a second StatCollect must not rearm the timer")

	sink.StatFinish()
	assert.Nil(t, sink.statStop)
	sink.StatFinish() // safe to call again
}
