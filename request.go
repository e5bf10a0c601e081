// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import (
	"time"

	"github.com/miekg/dns"

	"github.com/dnsburst/dnssim/layers"
)

// request is one in-flight DNS lookup. The registry owns it for its entire
// lifetime: socket readers and timers refer to it only by id, so an event
// arriving after the request died finds no map entry instead of freed state.
type request struct {
	id      uint64
	client  *Client
	payload *layers.Payload
	msg     *dns.Msg

	// queries holds the send attempts made on this request's behalf, keyed
	// by a per-request counter so unlink is a map delete.
	queries map[uint32]*udpQuery
	nextQry uint32

	timeout        *time.Timer
	timeoutClosing bool
	sentAt         time.Time
}

type respEvent struct {
	reqID uint64
	qryID uint32
	data  []byte
	at    time.Time
}

type queryClosedEvent struct {
	reqID uint64
	qryID uint32
}

type timeoutEvent struct {
	reqID uint64
}

type statTickEvent struct{}

// createRequestUDP is the UDP-only transport strategy: parse the query
// header, account the request, issue one query socket and arm the timeout.
// Any sub-step failing discards the request through the common epilogue.
func createRequestUDP(s *Sink, client *Client, payload *layers.Payload) {
	req := &request{
		id:      s.nextID,
		client:  client,
		payload: payload,
		queries: make(map[uint32]*udpQuery),
	}
	s.nextID++
	s.reqs[req.id] = req

	msg := new(dns.Msg)
	if err := msg.Unpack(payload.Data); err != nil {
		s.log.Debugf("discarded malformed dns query: %v", err)
		s.failRequest(req)
		return
	}
	req.msg = msg

	client.ReqTotal++
	s.sum.Total++
	s.current().Total++

	if err := s.createQueryUDP(req); err != nil {
		s.log.Warnf("failed to create udp query: %v", err)
		s.failRequest(req)
		return
	}

	id := req.id
	req.timeout = time.AfterFunc(s.Timeout, func() {
		s.events.Append(&timeoutEvent{reqID: id})
	})
}

func (s *Sink) failRequest(req *request) {
	s.discarded++
	s.closeRequest(req)
}

// closeRequest stops the timeout and kicks the close of every query. The
// request itself is freed by maybeFreeRequest: right here when it has no
// queries, otherwise once the last query-closed event has drained.
func (s *Sink) closeRequest(req *request) {
	if req == nil {
		return
	}

	if req.timeout != nil && !req.timeoutClosing {
		req.timeoutClosing = true
		req.timeout.Stop()
		req.timeout = nil
	}

	for _, qry := range req.queries {
		s.closeQueryUDP(qry)
	}

	s.maybeFreeRequest(req)
}

// maybeFreeRequest frees the request iff it has no queries and no timeout.
// Every close path converges here, so the free happens exactly once.
func (s *Sink) maybeFreeRequest(req *request) {
	if len(req.queries) != 0 || req.timeout != nil {
		return
	}

	delete(s.reqs, req.id)
	if s.FreeAfterUse {
		layers.Release(req.payload)
	}
	req.payload = nil
	req.msg = nil
}

func (s *Sink) handleTimeout(ev *timeoutEvent) {
	req, ok := s.reqs[ev.reqID]
	if !ok || req.timeout == nil {
		// the request closed before its timer expiration drained
		return
	}

	req.timeoutClosing = true
	req.timeout = nil
	s.closeRequest(req)
}

func (s *Sink) handleQueryClosed(ev *queryClosedEvent) {
	req, ok := s.reqs[ev.reqID]
	if !ok {
		return
	}
	if _, ok := req.queries[ev.qryID]; !ok {
		return
	}

	delete(req.queries, ev.qryID)
	s.ongoing--
	s.maybeFreeRequest(req)
}
