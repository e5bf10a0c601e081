// Copyright © by the DNSBurst Authors 2022-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// dnssim replays DNS queries toward a resolver under test. Query names are
// read from a file (or stdin) and turned into synthetic client traffic, or
// raw hex-encoded datagrams are replayed as-is.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/dnsburst/dnssim"
	"github.com/dnsburst/dnssim/layers"
	logpkg "github.com/dnsburst/dnssim/log"
)

const (
	defaultPort     int = 53
	defaultClients  int = 1024
	defaultTimeout  int = 2000
	defaultInterval int = 1000
)

type params struct {
	Log      *zap.SugaredLogger
	Sink     *dnssim.Sink
	Target   string
	Port     int
	Sources  CommaSep
	Clients  int
	Qtype    uint16
	QPS      int
	Adaptive bool
	Raw      bool
	Quiet    bool
	Input    *os.File
	Help     bool
}

func main() {
	p, buf, err := ObtainParams(os.Args[1:])
	if err != nil {
		msg := err.Error()
		if buf != nil {
			msg = buf.String()
		}
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
	if p.Help && buf != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s %s\n%s\n", path.Base(os.Args[0]), "[options]", buf.String())
		return
	}
	defer func() { _ = p.Input.Close() }()

	EventLoop(p)
}

func ObtainParams(args []string) (*params, *bytes.Buffer, error) {
	var timeout, interval int
	var ipath, lpath, qtype string

	buf := new(bytes.Buffer)
	flags := flag.NewFlagSet("dnssim", flag.ContinueOnError)
	flags.SetOutput(buf)

	p := new(params)
	flags.BoolVar(&p.Help, "h", false, "Print usage information")
	flags.BoolVar(&p.Quiet, "quiet", false, "Quiet mode")
	flags.BoolVar(&p.Raw, "raw", false, "Input lines are hex-encoded IP datagrams instead of query names")
	flags.BoolVar(&p.Adaptive, "adaptive", false, "Pace replay from the response rate observed at the target")
	flags.StringVar(&p.Target, "t", "", "IP address of the target resolver")
	flags.IntVar(&p.Port, "p", defaultPort, "Port of the target resolver")
	flags.Var(&p.Sources, "b", "Source addresses to bind query sockets to, comma-separated")
	flags.IntVar(&p.Clients, "n", defaultClients, "Number of simulated client slots")
	flags.IntVar(&timeout, "timeout", defaultTimeout, "Milliseconds to wait before a request times out")
	flags.IntVar(&interval, "interval", defaultInterval, "Milliseconds between statistics log lines")
	flags.IntVar(&p.QPS, "qps", 0, "Upper bound on replayed queries per second")
	flags.StringVar(&qtype, "qt", "A", "DNS record type used for generated queries")
	flags.StringVar(&ipath, "i", "", "Read input from the specified file (default stdin)")
	flags.StringVar(&lpath, "l", "", "Write the log to the specified file (default stdout)")
	if err := flags.Parse(args); err != nil {
		return nil, buf, fmt.Errorf("%v", err)
	}
	if p.Help {
		flags.PrintDefaults()
		return p, buf, nil
	}
	if p.Target == "" {
		return nil, nil, fmt.Errorf("a target resolver must be provided with -t")
	}

	p.Qtype = StringToQtype(qtype)
	if p.Qtype == 0 {
		return nil, nil, fmt.Errorf("unsupported query type: %s", qtype)
	}

	if p.Quiet && lpath == "" {
		p.Log = zap.NewNop().Sugar()
	} else {
		logger, err := logpkg.New(logpkg.Config{Stdout: !p.Quiet, File: lpath})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to setup logging: %v", err)
		}
		p.Log = logger
	}

	p.Input = os.Stdin
	if ipath != "" {
		f, err := os.Open(ipath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open the input file %s: %v", ipath, err)
		}
		p.Input = f
	}

	if err := p.SetupSink(timeout, interval); err != nil {
		return nil, nil, err
	}
	return p, nil, nil
}

func (p *params) SetupSink(timeout, interval int) error {
	s := dnssim.New(p.Clients)
	s.SetLogger(p.Log)
	s.Timeout = time.Duration(timeout) * time.Millisecond
	s.FreeAfterUse = true

	if err := s.SetTransport(dnssim.TransportUDPOnly); err != nil {
		return err
	}
	if err := s.SetTarget(p.Target, uint16(p.Port)); err != nil {
		return err
	}
	for _, src := range p.Sources {
		if err := s.BindSource(src); err != nil {
			return err
		}
	}

	if interval > 0 {
		s.StatCollect(time.Duration(interval) * time.Millisecond)
	}

	p.Sink = s
	return nil
}

func EventLoop(p *params) {
	var limiter ratelimit.Limiter
	if p.QPS > 0 {
		limiter = ratelimit.New(p.QPS)
	} else {
		limiter = ratelimit.NewUnlimited()
	}

	receiver := p.Sink.Receiver()
	gen := NewGenerator(p.Clients, p.Qtype)

	if p.Raw {
		packets := make(chan []byte, 500)
		go InputRawPackets(p.Input, packets)

		for raw := range packets {
			p.pace(limiter)
			if chain, err := layers.Decode(raw); err == nil {
				receiver(chain)
			} else {
				p.Log.Warnf("failed to decode raw packet: %v", err)
			}
			p.Sink.RunNowait()
		}
	} else {
		requests := make(chan string, 500)
		go InputNames(p.Input, requests)

		for name := range requests {
			p.pace(limiter)
			if chain, err := gen.Packet(name); err == nil {
				receiver(chain)
			} else {
				p.Log.Warnf("failed to generate packet for %s: %v", name, err)
			}
			p.Sink.RunNowait()
		}
	}

	// input has drained; stop the stats timer so only in-flight requests
	// keep the engine alive, then let them resolve or expire
	p.Sink.StatFinish()
	for p.Sink.RunNowait() {
		time.Sleep(10 * time.Millisecond)
	}

	sum := p.Sink.StatsSum()
	p.Log.Infof("replay finished: processed:%d answered:%d noerror:%d discarded:%d",
		p.Sink.Processed(), sum.Answered, sum.Noerror, p.Sink.Discarded())

	if err := p.Sink.Close(); err != nil {
		p.Log.Errorf("failed to close the sink: %v", err)
	}
}

func (p *params) pace(limiter ratelimit.Limiter) {
	if p.Adaptive {
		p.Sink.Rate().Take()
		return
	}
	limiter.Take()
}

// Generator builds synthetic client packets: each query is wrapped in an
// IPv4/UDP chain whose destination address walks the client table so the
// traffic spreads across every accounting slot.
type Generator struct {
	clients int
	qtype   uint16
	nextID  uint16
	nextKey int
}

func NewGenerator(clients int, qtype uint16) *Generator {
	return &Generator{clients: clients, qtype: qtype}
}

func (g *Generator) Packet(name string) (layers.Object, error) {
	wire, err := dnssim.PackQuery(name, g.qtype, g.nextID)
	if err != nil {
		return nil, err
	}
	g.nextID++

	key := g.nextKey
	g.nextKey = (g.nextKey + 1) % g.clients

	src := [4]byte{198, 18, 0, 1}
	dst := [4]byte{byte(key >> 24), byte(key >> 16), byte(key >> 8), byte(key)}

	ip := layers.NewIP(nil, src, dst)
	udp := layers.NewUDP(ip, 53000, 53)
	return layers.NewPayload(udp, wire), nil
}
