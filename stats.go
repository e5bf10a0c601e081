// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import "time"

// Stats is one counter record. The sink keeps a monotonically growing sum
// plus a chain of per-interval snapshots; live increments always go to both
// the sum and the current snapshot, so the sum equals the chain total at
// every quiescent point.
type Stats struct {
	Total    uint64
	Answered uint64
	Noerror  uint64

	Prev *Stats
	Next *Stats
}

// StatsSum returns the aggregate counters for the engine's whole lifetime.
func (s *Sink) StatsSum() *Stats { return s.sum }

// StatsFirst returns the snapshot anchoring the chain.
func (s *Sink) StatsFirst() *Stats { return s.snapshots[0] }

// StatsCurrent returns the snapshot receiving live increments.
func (s *Sink) StatsCurrent() *Stats { return s.current() }

// Snapshots returns the snapshot chain in creation order.
func (s *Sink) Snapshots() []*Stats { return s.snapshots }

func (s *Sink) current() *Stats { return s.snapshots[len(s.snapshots)-1] }

// StatCollect arms the recurring statistics timer. Each tick logs the
// aggregated counters and rotates in a fresh snapshot. A second call while
// the collector is armed is ignored.
func (s *Sink) StatCollect(interval time.Duration) {
	if s.statStop != nil {
		return
	}

	stop := make(chan struct{})
	s.statStop = stop

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				s.events.Append(&statTickEvent{})
			}
		}
	}()
}

// StatFinish stops the statistics timer. Snapshots collected so far remain
// readable until the sink is closed.
func (s *Sink) StatFinish() {
	if s.statStop == nil {
		return
	}
	close(s.statStop)
	s.statStop = nil
}

func (s *Sink) statTick() {
	if s.statStop == nil {
		// a tick queued before StatFinish ran
		return
	}

	s.log.Infof("processed:%10d; answered:%10d; discarded:%10d; ongoing:%10d",
		s.processed, s.sum.Answered, s.discarded, s.ongoing)

	next := new(Stats)
	cur := s.current()
	cur.Next = next
	next.Prev = cur
	s.snapshots = append(s.snapshots, next)
}
