// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// udpQuery is one send attempt bound to one ephemeral endpoint. Its reader
// goroutine owns the socket reads; everything else happens on the loop
// thread.
type udpQuery struct {
	id      uint32
	reqID   uint64
	conn    net.PacketConn
	closing bool
}

// createQueryUDP opens a UDP endpoint for the request, optionally bound to
// the next source in the ring, sends the payload once and starts receiving.
// There is no retransmission: the request timeout is the only loss recovery.
func (s *Sink) createQueryUDP(req *request) error {
	if s.target == nil {
		return errors.New("no target address set")
	}

	laddr := ":0"
	if len(s.sources) > 0 {
		laddr = net.JoinHostPort(s.sources[s.nextSource].IP.String(), "0")
		s.nextSource = (s.nextSource + 1) % len(s.sources)
	}

	conn, err := s.listenPacket(laddr)
	if err != nil {
		return fmt.Errorf("failed to open udp endpoint on %s: %w", laddr, err)
	}

	qry := &udpQuery{id: req.nextQry, reqID: req.id, conn: conn}
	req.nextQry++
	req.queries[qry.id] = qry
	s.ongoing++

	// The reader starts before the send so the query-closed event is
	// guaranteed even when the send fails and the epilogue closes us.
	go s.readQueryUDP(qry)

	req.sentAt = time.Now()
	if _, err := conn.WriteTo(req.payload.Data, s.target); err != nil {
		return fmt.Errorf("failed to send udp packet: %w", err)
	}

	s.log.Debugf("sent udp from %s", conn.LocalAddr())
	return nil
}

func (s *Sink) readQueryUDP(qry *udpQuery) {
	for {
		b := make([]byte, dns.MaxMsgSize)
		n, _, err := qry.conn.ReadFrom(b)
		if err != nil {
			break
		}
		if n > 0 {
			s.events.Append(&respEvent{reqID: qry.reqID, qryID: qry.id, data: b[:n], at: time.Now()})
		}
	}
	s.events.Append(&queryClosedEvent{reqID: qry.reqID, qryID: qry.id})
}

// processResponseUDP matches a received datagram against its request. Drops
// (malformed, msgid mismatch, truncated) leave the request running; the
// timeout still governs its closure. The first matching reply accounts the
// answer and closes the request.
func (s *Sink) processResponseUDP(ev *respEvent) {
	req, ok := s.reqs[ev.reqID]
	if !ok {
		// reply landed after the request closed
		return
	}
	if qry, ok := req.queries[ev.qryID]; !ok || qry.closing {
		return
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(ev.data); err != nil {
		s.log.Debugf("udp response malformed: %v", err)
		return
	}
	if msg.Id != req.msg.Id {
		s.log.Debugf("udp response msgid mismatch %x(q) != %x(a)", req.msg.Id, msg.Id)
		return
	}
	if msg.Truncated {
		// TODO fall back to TCP once TransportUDP is implemented
		s.log.Debugf("udp response has TC=1")
		return
	}

	rtt := ev.at.Sub(req.sentAt)
	req.client.ReqAnswered++
	s.sum.Answered++
	s.current().Answered++
	req.client.reportRTT(rtt)
	s.rate.ReportRTT(rtt)

	if msg.Rcode == dns.RcodeSuccess {
		req.client.ReqNoerror++
		s.sum.Noerror++
		s.current().Noerror++
	}

	s.closeRequest(req)
}

// closeQueryUDP shuts the endpoint down; the reader goroutine notices the
// closed socket and emits the query-closed event that unlinks the query.
func (s *Sink) closeQueryUDP(qry *udpQuery) {
	if qry.closing {
		return
	}
	qry.closing = true
	_ = qry.conn.Close()
}
