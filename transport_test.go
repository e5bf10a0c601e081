// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import (
	"testing"
)

func TestTransportValues(t *testing.T) {
	// fixed numeric values read by downstream consumers
	cases := []struct {
		tr   Transport
		want uint8
	}{
		{TransportUDPOnly, 255},
		{TransportUDP, 254},
		{TransportTCP, 253},
		{TransportTLS, 252},
	}

	for _, c := range cases {
		if uint8(c.tr) != c.want {
			t.Errorf("transport %s has value %d, expected %d", c.tr, uint8(c.tr), c.want)
		}
	}
}

func TestSetTransport(t *testing.T) {
	sink := New(1)
	defer func() { _ = sink.Close() }()

	if err := sink.SetTransport(TransportUDPOnly); err != nil {
		t.Errorf("failed to select the UDP-only transport: %v", err)
	}

	for _, tr := range []Transport{TransportUDP, TransportTCP, TransportTLS, Transport(0)} {
		if err := sink.SetTransport(tr); err == nil {
			t.Errorf("transport %s must be rejected", tr)
		}
	}

	// a rejected transport must not clear the strategy
	if sink.createRequest == nil {
		t.Errorf("the create-request strategy was cleared by a rejected transport")
	}
	if sink.transport != TransportUDPOnly {
		t.Errorf("the transport changed after a rejected call: %s", sink.transport)
	}
}
