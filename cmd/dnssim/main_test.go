// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/miekg/dns"

	"github.com/dnsburst/dnssim/layers"
)

func TestObtainParamsRequiresTarget(t *testing.T) {
	if _, _, err := ObtainParams([]string{"-quiet"}); err == nil {
		t.Errorf("params without -t must be rejected")
	}
}

func TestObtainParamsHelp(t *testing.T) {
	p, buf, err := ObtainParams([]string{"-h"})
	if err != nil {
		t.Fatalf("help must not be an error: %v", err)
	}
	if !p.Help || buf == nil || buf.Len() == 0 {
		t.Errorf("usage information was not produced")
	}
}

func TestObtainParamsDefaults(t *testing.T) {
	p, _, err := ObtainParams([]string{"-t", "::1", "-quiet"})
	if err != nil {
		t.Fatalf("failed to obtain params: %v", err)
	}
	defer func() { _ = p.Sink.Close() }()

	if p.Port != defaultPort || p.Clients != defaultClients {
		t.Errorf("got port=%d clients=%d, expected defaults", p.Port, p.Clients)
	}
	if p.Qtype != dns.TypeA {
		t.Errorf("got qtype=%d, expected TypeA", p.Qtype)
	}
	if p.Sink == nil {
		t.Fatalf("the sink was not constructed")
	}
}

func TestObtainParamsRejectsBadQtype(t *testing.T) {
	if _, _, err := ObtainParams([]string{"-t", "::1", "-qt", "BOGUS", "-quiet"}); err == nil {
		t.Errorf("an unsupported query type must be rejected")
	}
}

func TestGeneratorPackets(t *testing.T) {
	gen := NewGenerator(4, dns.TypeA)

	for i := 0; i < 6; i++ {
		obj, err := gen.Packet("example.com")
		if err != nil {
			t.Fatalf("failed to generate a packet: %v", err)
		}

		payload, ok := obj.(*layers.Payload)
		if !ok {
			t.Fatalf("the generator must return a payload object")
		}

		m := new(dns.Msg)
		if err := m.Unpack(payload.Data); err != nil {
			t.Fatalf("the generated payload does not parse: %v", err)
		}
		if m.Id != uint16(i) {
			t.Errorf("got id=%d, expected %d", m.Id, i)
		}
		if m.Question[0].Name != "example.com." {
			t.Errorf("got question %s", m.Question[0].Name)
		}

		ip, ok := payload.Prev().Prev().(*layers.IP)
		if !ok {
			t.Fatalf("the chain is missing its IP layer")
		}
		if want := byte(i % 4); ip.Dst[3] != want {
			t.Errorf("got client octet %d, expected %d", ip.Dst[3], want)
		}
	}
}
