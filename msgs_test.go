// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import (
	"testing"

	"github.com/miekg/dns"
)

func TestQueryMsg(t *testing.T) {
	m := QueryMsg("example.com", dns.TypeAAAA)

	if m.Question[0].Name != "example.com." {
		t.Errorf("got question name %s, expected example.com.", m.Question[0].Name)
	}
	if m.Question[0].Qtype != dns.TypeAAAA {
		t.Errorf("got qtype %d, expected %d", m.Question[0].Qtype, dns.TypeAAAA)
	}
}

func TestPackQuery(t *testing.T) {
	wire, err := PackQuery("example.com", dns.TypeA, 0xbeef)
	if err != nil {
		t.Fatalf("failed to pack the query: %v", err)
	}

	m := new(dns.Msg)
	if err := m.Unpack(wire); err != nil {
		t.Fatalf("failed to unpack the query: %v", err)
	}
	if m.Id != 0xbeef {
		t.Errorf("got id %x, expected beef", m.Id)
	}
	if m.Question[0].Name != "example.com." {
		t.Errorf("got question name %s, expected example.com.", m.Question[0].Name)
	}
}

func TestRemoveLastDot(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"example.com.", "example.com"},
		{"example.com", "example.com"},
		{".", ""},
		{"", ""},
	}

	for _, c := range cases {
		if got := RemoveLastDot(c.in); got != c.want {
			t.Errorf("RemoveLastDot(%q) = %q, expected %q", c.in, got, c.want)
		}
	}
}
