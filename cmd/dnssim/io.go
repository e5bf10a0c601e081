// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/caffix/stringset"
	"github.com/miekg/dns"

	"github.com/dnsburst/dnssim"
)

// CommaSep implements the flag.Value interface.
type CommaSep []string

// String implements the fmt.Stringer interface.
func (c CommaSep) String() string {
	if len(c) == 0 {
		return ""
	}
	return strings.Join(c, ",")
}

// Set implements the flag.Value interface.
func (c *CommaSep) Set(s string) error {
	if s == "" {
		return fmt.Errorf("failed to parse the provided string: %s", s)
	}

	strs := strings.Split(s, ",")
	for _, s := range strs {
		if s != "" {
			*c = append(*c, strings.TrimSpace(s))
		}
	}
	return nil
}

// InputNames reads query names from input, deduplicates them and sends them
// on the requests channel. The channel is closed once the input drains.
func InputNames(input io.Reader, requests chan string) {
	set := stringset.New()
	defer set.Close()
	defer close(requests)

	_ = ExtractLines(input, func(str string) error {
		name := dnssim.RemoveLastDot(strings.ToLower(strings.TrimSpace(str)))
		if name == "" || set.Has(name) {
			return nil
		}

		if _, ok := dns.IsDomainName(name); ok {
			set.Insert(name)
			requests <- name
		}
		return nil
	})
}

// InputRawPackets reads hex-encoded IP datagrams from input, one per line,
// and sends the decoded bytes on the packets channel.
func InputRawPackets(input io.Reader, packets chan []byte) {
	defer close(packets)

	_ = ExtractLines(input, func(str string) error {
		str = strings.TrimSpace(str)
		if str == "" || strings.HasPrefix(str, "#") {
			return nil
		}

		if raw, err := hex.DecodeString(str); err == nil {
			packets <- raw
		}
		return nil
	})
}

func ExtractLines(reader io.Reader, cb func(str string) error) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		if err := cb(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func StringToQtype(str string) uint16 {
	switch strings.ToUpper(str) {
	case "A":
		return dns.TypeA
	case "NS":
		return dns.TypeNS
	case "CNAME":
		return dns.TypeCNAME
	case "SOA":
		return dns.TypeSOA
	case "PTR":
		return dns.TypePTR
	case "MX":
		return dns.TypeMX
	case "TXT":
		return dns.TypeTXT
	case "AAAA":
		return dns.TypeAAAA
	}
	return dns.TypeNone
}
