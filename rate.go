// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	numIntervalSeconds  = 5
	minUpdateSampleSize = 10
	maxTrackedRTT       = 500 * time.Millisecond
	rateUpdateInterval  = numIntervalSeconds * time.Second
)

// rateTrack turns the response times observed by the sink into a send-rate
// limiter. Embedders that want adaptive pacing call Take or Wait before
// feeding the next packet; the limit follows the target's smoothed RTT.
type rateTrack struct {
	sync.Mutex
	limiter    *rate.Limiter
	avg        time.Duration
	count      int
	first      bool
	updateTime time.Time
}

func newRateTrack() *rateTrack {
	limit := rate.Every(100 * time.Millisecond)

	return &rateTrack{
		limiter: rate.NewLimiter(limit, 1),
		first:   true,
	}
}

// Take blocks as required by the current rate limit.
func (r *rateTrack) Take() {
	_ = r.limiter.Wait(context.TODO())
}

// Wait blocks as required by the current rate limit or until the context
// expires.
func (r *rateTrack) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// ReportRTT folds the response time of an answered request into the moving
// average driving the limiter.
func (r *rateTrack) ReportRTT(rtt time.Duration) {
	r.Lock()
	defer r.Unlock()

	if rtt > maxTrackedRTT {
		rtt = maxTrackedRTT
	}

	r.count++
	count := float64(r.count)
	average := float64(r.avg.Milliseconds())
	average = ((average * (count - 1)) + float64(rtt.Milliseconds())) / count
	r.avg = time.Duration(math.Round(average)) * time.Millisecond

	if r.first {
		r.update()
		r.first = false
		r.updateTime = time.Now()
	} else if r.count >= minUpdateSampleSize && time.Since(r.updateTime) >= rateUpdateInterval {
		r.update()
		r.updateTime = time.Now()
	}
}

// update the rate limiter and reset the counters
func (r *rateTrack) update() {
	if r.avg > 0 {
		r.limiter.SetLimit(rate.Every(r.avg))
	}
	r.avg = 0
	r.count = 0
}
