// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package layers models the chain of decoded protocol objects handed to the
// sink by an upstream packet source. Objects are linked through Prev, which
// points one layer outward: a payload's Prev is the UDP layer that carried
// it, whose Prev is the IP layer, and so on.
package layers

import "sync"

// Kind tags a protocol object in the chain.
type Kind uint8

const (
	KindNone Kind = iota
	KindEther
	KindIP
	KindIP6
	KindUDP
	KindTCP
	KindPayload
	KindDNS
)

func (k Kind) String() string {
	switch k {
	case KindEther:
		return "ether"
	case KindIP:
		return "ip"
	case KindIP6:
		return "ip6"
	case KindUDP:
		return "udp"
	case KindTCP:
		return "tcp"
	case KindPayload:
		return "payload"
	case KindDNS:
		return "dns"
	}
	return "none"
}

// Object is one element of a decoded packet chain.
type Object interface {
	Kind() Kind
	Prev() Object
}

// IP is a decoded IPv4 layer. Only the addresses survive decoding since the
// sink derives client identity from the destination.
type IP struct {
	prev Object
	Src  [4]byte
	Dst  [4]byte
}

func (o *IP) Kind() Kind   { return KindIP }
func (o *IP) Prev() Object { return o.prev }

// IP6 is a decoded IPv6 layer.
type IP6 struct {
	prev Object
	Src  [16]byte
	Dst  [16]byte
}

func (o *IP6) Kind() Kind   { return KindIP6 }
func (o *IP6) Prev() Object { return o.prev }

// UDP is a decoded UDP layer.
type UDP struct {
	prev    Object
	SrcPort uint16
	DstPort uint16
}

func (o *UDP) Kind() Kind   { return KindUDP }
func (o *UDP) Prev() Object { return o.prev }

// Payload is the raw application data carried by a packet.
type Payload struct {
	prev Object
	Data []byte
}

func (o *Payload) Kind() Kind   { return KindPayload }
func (o *Payload) Prev() Object { return o.prev }

// DNS carries the header fields of a parsed DNS message. Sources that have
// already parsed the payload may add it to the chain; the sink walks past it.
type DNS struct {
	prev  Object
	ID    uint16
	QR    bool
	TC    bool
	Rcode int
}

func (o *DNS) Kind() Kind   { return KindDNS }
func (o *DNS) Prev() Object { return o.prev }

var (
	ipPool      = sync.Pool{New: func() any { return new(IP) }}
	ip6Pool     = sync.Pool{New: func() any { return new(IP6) }}
	udpPool     = sync.Pool{New: func() any { return new(UDP) }}
	payloadPool = sync.Pool{New: func() any { return new(Payload) }}
	dnsPool     = sync.Pool{New: func() any { return new(DNS) }}
)

// NewIP returns a pooled IPv4 object linked to prev.
func NewIP(prev Object, src, dst [4]byte) *IP {
	o := ipPool.Get().(*IP)
	o.prev, o.Src, o.Dst = prev, src, dst
	return o
}

// NewIP6 returns a pooled IPv6 object linked to prev.
func NewIP6(prev Object, src, dst [16]byte) *IP6 {
	o := ip6Pool.Get().(*IP6)
	o.prev, o.Src, o.Dst = prev, src, dst
	return o
}

// NewUDP returns a pooled UDP object linked to prev.
func NewUDP(prev Object, sport, dport uint16) *UDP {
	o := udpPool.Get().(*UDP)
	o.prev, o.SrcPort, o.DstPort = prev, sport, dport
	return o
}

// NewPayload returns a pooled payload object linked to prev. The data slice
// is retained, not copied.
func NewPayload(prev Object, data []byte) *Payload {
	o := payloadPool.Get().(*Payload)
	o.prev, o.Data = prev, data
	return o
}

// NewDNS returns a pooled DNS header object linked to prev.
func NewDNS(prev Object, id uint16, qr, tc bool, rcode int) *DNS {
	o := dnsPool.Get().(*DNS)
	o.prev, o.ID, o.QR, o.TC, o.Rcode = prev, id, qr, tc, rcode
	return o
}

// Release zeroes obj and returns it to its pool. The caller must not touch
// the object afterward; releasing an object does not release its Prev.
func Release(obj Object) {
	switch o := obj.(type) {
	case *IP:
		*o = IP{}
		ipPool.Put(o)
	case *IP6:
		*o = IP6{}
		ip6Pool.Put(o)
	case *UDP:
		*o = UDP{}
		udpPool.Put(o)
	case *Payload:
		*o = Payload{}
		payloadPool.Put(o)
	case *DNS:
		*o = DNS{}
		dnsPool.Put(o)
	}
}
