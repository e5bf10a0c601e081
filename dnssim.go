// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package dnssim replays decoded DNS query packets toward a target resolver
// over UDP, correlates replies back to the originating queries, attributes
// the results to per-client accounting slots, and produces periodic
// throughput statistics. It is the output stage of a packet-replay pipeline:
// an upstream decoder feeds it object chains through the hook published by
// Receiver, and the embedder drives the engine by calling RunNowait.
//
// The engine is single-threaded by contract: Receiver, RunNowait, StatCollect
// and Close must all be called from the same goroutine. Socket readers and
// timers run concurrently but only ever append events to the internal queue;
// every piece of request, client and statistics state is mutated exclusively
// on the caller's goroutine while draining that queue.
package dnssim

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/caffix/queue"
	"go.uber.org/zap"

	"github.com/dnsburst/dnssim/layers"
)

// DefaultTimeout is the duration waited until an in-flight request expires.
const DefaultTimeout = 2000 * time.Millisecond

// Sink is the traffic-replay engine.
type Sink struct {
	// Timeout bounds how long each request waits for a matching reply.
	Timeout time.Duration
	// FreeAfterUse returns consumed chain objects to their pools: non-payload
	// objects during dispatch, the payload once its request is freed. Leave
	// it unset when the upstream source still owns the objects.
	FreeAfterUse bool

	log       *zap.SugaredLogger
	transport Transport

	// createRequest is the transport strategy invoked for every admitted
	// packet. SetTransport swaps it so TCP/TLS can slot in later without
	// touching the dispatcher.
	createRequest func(*Sink, *Client, *layers.Payload)

	target     *net.UDPAddr
	sources    []*net.UDPAddr
	nextSource int

	clients []Client
	rate    *rateTrack

	processed uint64
	discarded uint64
	ongoing   uint64

	sum       *Stats
	snapshots []*Stats
	statStop  chan struct{}

	// events carries responses, socket closes and timer expirations from the
	// engine's goroutines back to the loop thread. reqs maps live request ids
	// to their state; an event whose id no longer resolves arrived after its
	// request died and is dropped.
	events queue.Queue
	reqs   map[uint64]*request
	nextID uint64
}

// New allocates a sink with accounting slots for maxClients clients.
func New(maxClients int) *Sink {
	s := &Sink{
		Timeout:   DefaultTimeout,
		log:       zap.NewNop().Sugar(),
		transport: TransportUDPOnly,
		clients:   make([]Client, maxClients),
		rate:      newRateTrack(),
		sum:       new(Stats),
		snapshots: []*Stats{new(Stats)},
		events:    queue.NewQueue(),
		reqs:      make(map[uint64]*request),
	}

	s.createRequest = createRequestUDP
	return s
}

// SetLogger replaces the engine logger. The default discards everything.
func (s *Sink) SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		s.log = l
	}
}

// SetTarget parses an IPv4 or IPv6 literal and stores it as the resolver all
// queries are sent to. The previous target is kept on failure.
func (s *Sink) SetTarget(ip string, port uint16) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		s.log.Errorf("failed to parse target address %q: %v", ip, err)
		return err
	}

	s.target = net.UDPAddrFromAddrPort(netip.AddrPortFrom(addr, port))
	s.log.Infof("set target to %s port %d", ip, port)
	return nil
}

// BindSource parses an IPv4 or IPv6 literal and adds it to the ring of local
// addresses that query sockets bind to. Each query consumes the address under
// the cursor and advances it one step, so repeated calls yield
// insertion-order rotation. No state changes on a parse failure.
func (s *Sink) BindSource(ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		s.log.Errorf("failed to parse source address %q: %v", ip, err)
		return err
	}

	s.sources = append(s.sources, net.UDPAddrFromAddrPort(netip.AddrPortFrom(addr, 0)))
	s.log.Infof("bind to source address %s", ip)
	return nil
}

// Receiver publishes the hook the upstream pipeline invokes for every packet.
// The returned function is stable for the engine's lifetime.
func (s *Sink) Receiver() func(layers.Object) {
	return s.receive
}

// receive is the ingress dispatcher: it locates the payload and the client
// key in the object chain and hands off to the transport strategy. It is the
// only site that increments processed.
func (s *Sink) receive(obj layers.Object) {
	s.processed++

	cur := obj
	var payload *layers.Payload
	for {
		if cur == nil {
			s.discarded++
			s.log.Warnf("packet discarded (missing payload object)")
			return
		}
		if p, ok := cur.(*layers.Payload); ok {
			payload = p
			break
		}
		cur = cur.Prev()
	}

	var key uint32
	for {
		if cur == nil {
			s.discarded++
			s.log.Warnf("packet discarded (missing ip/ip6 object)")
			return
		}
		if k, ok := extractClient(cur); ok {
			key = k
			break
		}
		cur = cur.Prev()
	}

	if s.FreeAfterUse {
		// Release every object except the payload, which the request keeps.
		for cur := obj; cur != nil; {
			prev := cur.Prev()
			if cur.Kind() != layers.KindPayload {
				layers.Release(cur)
			}
			cur = prev
		}
	}

	if int(key) >= len(s.clients) {
		s.discarded++
		s.log.Warnf("packet discarded (client %d exceeded max clients)", key)
		return
	}

	s.createRequest(s, &s.clients[key], payload)
}

// extractClient derives the client key from the destination address of an IP
// or IP6 object: the big-endian value of the first 4 address bytes.
func extractClient(obj layers.Object) (uint32, bool) {
	switch o := obj.(type) {
	case *layers.IP:
		return uint32(o.Dst[0])<<24 | uint32(o.Dst[1])<<16 | uint32(o.Dst[2])<<8 | uint32(o.Dst[3]), true
	case *layers.IP6:
		return uint32(o.Dst[0])<<24 | uint32(o.Dst[1])<<16 | uint32(o.Dst[2])<<8 | uint32(o.Dst[3]), true
	}
	return 0, false
}

// RunNowait drains the events that are currently pending without blocking
// and reports whether the engine still has work left: live requests, queued
// events, or an armed statistics collector.
func (s *Sink) RunNowait() bool {
	for {
		element, ok := s.events.Next()
		if !ok {
			break
		}
		s.dispatch(element)
	}
	return len(s.reqs) > 0 || s.events.Len() > 0 || s.statStop != nil
}

// Run drives the engine until the context expires, blocking between events.
func (s *Sink) Run(ctx context.Context) {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.events.Signal():
		case <-t.C:
		}
		s.RunNowait()
	}
}

func (s *Sink) dispatch(element interface{}) {
	switch ev := element.(type) {
	case *respEvent:
		s.processResponseUDP(ev)
	case *queryClosedEvent:
		s.handleQueryClosed(ev)
	case *timeoutEvent:
		s.handleTimeout(ev)
	case *statTickEvent:
		s.statTick()
	}
}

// Close tears the engine down: the stats collector is stopped, every live
// request is closed, and the loop is drained until all pending socket-close
// events have landed. Counters remain readable afterward.
func (s *Sink) Close() error {
	s.StatFinish()

	for _, req := range s.reqs {
		s.closeRequest(req)
	}

	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for s.RunNowait() {
		if len(s.reqs) == 0 && s.events.Len() == 0 {
			break
		}
		select {
		case <-s.events.Signal():
		case <-t.C:
		}
	}

	s.log.Debugf("sink closed")
	return nil
}

// Processed returns the number of packets handed to the dispatcher.
func (s *Sink) Processed() uint64 { return s.processed }

// Discarded returns the number of packets dropped before a query was sent.
func (s *Sink) Discarded() uint64 { return s.discarded }

// Ongoing returns the number of query sockets still open.
func (s *Sink) Ongoing() uint64 { return s.ongoing }

// Client returns the accounting slot for the provided client key.
func (s *Sink) Client(key uint32) *Client { return &s.clients[key] }

// MaxClients returns the size of the client table.
func (s *Sink) MaxClients() int { return len(s.clients) }

// Rate returns the limiter tracking the smoothed response rate of the
// target. Embedders may Wait on it to pace replay adaptively.
func (s *Sink) Rate() *rateTrack { return s.rate }
