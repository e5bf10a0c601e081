// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package dnssim

import (
	"net"
)

func (s *Sink) listenPacket(laddr string) (net.PacketConn, error) {
	return net.ListenPacket("udp", laddr)
}
