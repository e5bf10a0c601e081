// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package dnssim

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenPacket opens a UDP endpoint with SO_REUSEPORT set, so a large number
// of query sockets can share a bound source address without exhausting it.
func (s *Sink) listenPacket(laddr string) (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var operr error

			if err := c.Control(func(fd uintptr) {
				operr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}); err != nil {
				return err
			}

			return operr
		},
	}

	return lc.ListenPacket(context.Background(), "udp", laddr)
}
