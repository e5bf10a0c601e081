// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainConstruction(t *testing.T) {
	ip := NewIP(nil, [4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2})
	udp := NewUDP(ip, 1234, 53)
	payload := NewPayload(udp, []byte{0xab})

	assert.Equal(t, KindPayload, payload.Kind())
	assert.Same(t, udp, payload.Prev().(*UDP))
	assert.Same(t, ip, payload.Prev().Prev().(*IP))
	assert.Nil(t, ip.Prev())

	Release(payload)
	Release(udp)
	Release(ip)
}

func TestChainWithDNSObject(t *testing.T) {
	ip6 := NewIP6(nil, [16]byte{}, [16]byte{15: 1})
	udp := NewUDP(ip6, 1234, 53)
	payload := NewPayload(udp, []byte{0xab})
	d := NewDNS(payload, 0x1234, false, true, 0)

	assert.Equal(t, KindDNS, d.Kind())
	assert.Equal(t, uint16(0x1234), d.ID)
	assert.True(t, d.TC)

	// walking prev from the dns object reaches the payload, then the ip6
	assert.Same(t, payload, d.Prev().(*Payload))
	assert.Same(t, ip6, d.Prev().Prev().Prev().(*IP6))
}

func TestReleaseZeroes(t *testing.T) {
	payload := NewPayload(NewUDP(nil, 1, 2), []byte{1, 2, 3})
	Release(payload)

	// pooled objects come back zeroed through the constructor path
	fresh := NewPayload(nil, nil)
	assert.Nil(t, fresh.Prev())
	assert.Nil(t, fresh.Data)
	Release(fresh)
}

func TestKindStrings(t *testing.T) {
	cases := map[Kind]string{
		KindNone:    "none",
		KindEther:   "ether",
		KindIP:      "ip",
		KindIP6:     "ip6",
		KindUDP:     "udp",
		KindTCP:     "tcp",
		KindPayload: "payload",
		KindDNS:     "dns",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
