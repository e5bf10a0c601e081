// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package dnssim

import "fmt"

// Transport identifies the protocol used to deliver queries to the target.
type Transport uint8

// The numeric values are fixed to remain compatible with downstream
// consumers that read the enum. Only TransportUDPOnly has a query strategy;
// SetTransport rejects the other values as not implemented.
const (
	// TransportUDPOnly sends queries over UDP with no TCP fallback.
	TransportUDPOnly Transport = 255
	// TransportUDP sends queries over UDP and falls back to TCP on TC=1.
	TransportUDP Transport = 254
	// TransportTCP sends queries over TCP.
	TransportTCP Transport = 253
	// TransportTLS sends queries over TLS.
	TransportTLS Transport = 252
)

func (t Transport) String() string {
	switch t {
	case TransportUDPOnly:
		return "udp-only"
	case TransportUDP:
		return "udp"
	case TransportTCP:
		return "tcp"
	case TransportTLS:
		return "tls"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// SetTransport selects the strategy used to issue queries. Only
// TransportUDPOnly is currently supported, and everything else is
// rejected so the caller notices before generating traffic.
func (s *Sink) SetTransport(tr Transport) error {
	switch tr {
	case TransportUDPOnly:
		s.createRequest = createRequestUDP
	case TransportUDP, TransportTCP, TransportTLS:
		return fmt.Errorf("transport %s is not implemented", tr)
	default:
		return fmt.Errorf("unknown transport: %s", tr)
	}

	s.transport = tr
	s.log.Infof("transport set to UDP (no TCP fallback)")
	return nil
}
