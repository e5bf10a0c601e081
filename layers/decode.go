// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package layers

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const udpHeaderLen = 8

var errShortPacket = errors.New("packet too short")

// Decode parses a raw IPv4 or IPv6 datagram carrying UDP and returns the
// innermost object of the resulting chain (the payload). Extension headers
// and transports other than UDP are rejected.
func Decode(pkt []byte) (Object, error) {
	if len(pkt) == 0 {
		return nil, errShortPacket
	}

	switch pkt[0] >> 4 {
	case ipv4.Version:
		return decode4(pkt)
	case ipv6.Version:
		return decode6(pkt)
	}
	return nil, fmt.Errorf("unsupported IP version %d", pkt[0]>>4)
}

func decode4(pkt []byte) (Object, error) {
	h, err := ipv4.ParseHeader(pkt)
	if err != nil {
		return nil, err
	}
	if h.Protocol != 17 {
		return nil, fmt.Errorf("unsupported transport protocol %d", h.Protocol)
	}
	if len(pkt) < h.Len+udpHeaderLen {
		return nil, errShortPacket
	}

	var src, dst [4]byte
	copy(src[:], h.Src.To4())
	copy(dst[:], h.Dst.To4())

	ip := NewIP(nil, src, dst)
	return decodeUDP(ip, pkt[h.Len:])
}

func decode6(pkt []byte) (Object, error) {
	h, err := ipv6.ParseHeader(pkt)
	if err != nil {
		return nil, err
	}
	if h.NextHeader != 17 {
		return nil, fmt.Errorf("unsupported next header %d", h.NextHeader)
	}
	if len(pkt) < ipv6.HeaderLen+udpHeaderLen {
		return nil, errShortPacket
	}

	var src, dst [16]byte
	copy(src[:], h.Src.To16())
	copy(dst[:], h.Dst.To16())

	ip6 := NewIP6(nil, src, dst)
	return decodeUDP(ip6, pkt[ipv6.HeaderLen:])
}

func decodeUDP(prev Object, seg []byte) (Object, error) {
	sport := binary.BigEndian.Uint16(seg[0:2])
	dport := binary.BigEndian.Uint16(seg[2:4])
	ulen := int(binary.BigEndian.Uint16(seg[4:6]))

	if ulen < udpHeaderLen || ulen > len(seg) {
		return nil, errShortPacket
	}

	udp := NewUDP(prev, sport, dport)
	return NewPayload(udp, seg[udpHeaderLen:ulen]), nil
}
