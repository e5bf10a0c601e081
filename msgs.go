// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import (
	"github.com/miekg/dns"
)

// QueryMsg generates a message used for a forward DNS query.
func QueryMsg(name string, qtype uint16) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.Id = dns.Id()
	return m
}

// PackQuery builds the wire form of a forward DNS query with the provided
// message id, suitable for use as a replayed payload.
func PackQuery(name string, qtype, id uint16) ([]byte, error) {
	m := QueryMsg(name, qtype)
	m.Id = id
	return m.Pack()
}

// RemoveLastDot removes the '.' at the end of the provided FQDN.
func RemoveLastDot(name string) string {
	sz := len(name)
	if sz > 0 && name[sz-1] == '.' {
		return name[:sz-1]
	}
	return name
}
