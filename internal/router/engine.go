package router

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/pkg/errors"

	"firestige.xyz/router/internal/arptable"
	"firestige.xyz/router/internal/codec"
	"firestige.xyz/router/internal/core"
	"firestige.xyz/router/internal/log"
	"firestige.xyz/router/internal/metrics"
	"firestige.xyz/router/internal/transport"
)

// Engine forwards frames in one direction: everything read on in is either
// learned from (ARP) or rewritten and written to out (IPv4).
type Engine struct {
	in, out *Port
	table   arptable.Table
	decoder *codec.Decoder
	retry   RetryPolicy

	dropMalformed bool

	logger   log.Logger
	counters *counters
}

// NewEngine creates the engine for frames arriving on in.
func NewEngine(in, out *Port, table arptable.Table, opts ...Option) (*Engine, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.New("arp table is nil")
	}
	o := buildOptions(opts)
	return newEngine(in, out, table, o), nil
}

func newEngine(in, out *Port, table arptable.Table, o options) *Engine {
	return &Engine{
		in:            in,
		out:           out,
		table:         table,
		decoder:       codec.NewDecoder(),
		retry:         o.retry,
		dropMalformed: o.dropMalformed,
		logger:        o.logger.WithField("direction", in.Name+"->"+out.Name),
		counters:      newCounters(in.Name, out.Name),
	}
}

// Direction returns "<in>-><out>".
func (e *Engine) Direction() string {
	return e.in.Name + "->" + e.out.Name
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return e.counters.snapshot()
}

// Run reads and handles frames until ctx is cancelled or a fatal error occurs.
// Cancellation is noticed between frames and at every poll timeout of the
// inbound transport, and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started")
	defer e.logger.Info("engine stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		frame, err := e.in.Transport.ReadFrame()
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s: receive: %w", e.Direction(), err)
		}
		if err := e.HandleFrame(frame); err != nil {
			return err
		}
	}
}

// HandleFrame processes one inbound frame to completion. It is not safe for
// concurrent use; Run calls it from a single goroutine.
func (e *Engine) HandleFrame(frame []byte) error {
	e.counters.onReceived()
	codec.Dump(e.logger, e.in.Name, frame)

	f, err := e.decoder.Decode(frame)
	if err != nil {
		if e.dropMalformed && errors.Is(err, core.ErrMalformedFrame) {
			e.counters.onDropped(metrics.DropReasonMalformed)
			e.logger.WithError(err).Debug("dropped malformed frame")
			return nil
		}
		return fmt.Errorf("%s: %w", e.Direction(), err)
	}

	switch {
	case f.IsARP():
		e.learn(f.ARP)
		return nil
	case f.IsIPv4():
		return e.forward(frame, f.DstIP)
	default:
		e.counters.onDropped(metrics.DropReasonUnsupportedEtherType)
		if e.logger.IsDebugEnabled() {
			e.logger.Debugf("dropped frame with ethertype %#04x", f.Ethernet.EtherType)
		}
		return nil
	}
}

// learn records the sender of an ARP message addressed to the inbound port.
// ARP frames are never forwarded.
func (e *Engine) learn(arp *core.ARPHeader) {
	if !bytes.Equal(arp.TargetHW, e.in.HardwareAddr) {
		e.counters.onARPIgnored()
		if e.logger.IsDebugEnabled() {
			e.logger.Debugf("ignored ARP %s for %s", arp.Operation, arp.TargetHW)
		}
		return
	}
	e.table.Insert(arp.SenderIP, arp.SenderHW)
	e.counters.onLearned()
	e.logger.WithFields(map[string]interface{}{
		"ip":  arp.SenderIP.String(),
		"mac": arp.SenderHW.String(),
	}).Info("ARP table updated")
}

func (e *Engine) forward(frame []byte, dst netip.Addr) error {
	mac, attempts, err := e.resolve(dst)
	if err != nil {
		return err
	}
	if mac == nil {
		e.counters.onDropped(metrics.DropReasonUnresolved)
		if e.logger.IsDebugEnabled() {
			e.logger.Debugf("dropped frame for %s: unresolved after %d lookups", dst, attempts)
		}
		return nil
	}

	if err := e.out.Transport.WriteFrame(codec.Rewrite(frame, mac, e.out.HardwareAddr)); err != nil {
		return fmt.Errorf("%s: send: %w", e.Direction(), err)
	}
	e.counters.onForwarded(attempts)
	return nil
}

// resolve looks dst up in the table. After the first miss it broadcasts one
// ARP request on the outbound port, then keeps looking up until the retry
// attempts run out. The table lock is never held across a sleep.
// A nil address with a nil error means dst did not resolve.
func (e *Engine) resolve(dst netip.Addr) (net.HardwareAddr, int, error) {
	for attempt := 1; ; attempt++ {
		if mac, ok := e.table.Lookup(dst); ok {
			return mac, attempt, nil
		}
		if attempt == 1 {
			if err := e.sendARPRequest(dst); err != nil {
				return nil, attempt, err
			}
		}
		if attempt >= e.retry.MaxAttempts {
			return nil, attempt, nil
		}
		e.retry.Clock.Sleep(e.retry.Interval)
	}
}

func (e *Engine) sendARPRequest(dst netip.Addr) error {
	req, err := codec.BuildARPRequest(e.out.HardwareAddr, e.out.IPv4, dst)
	if err != nil {
		return fmt.Errorf("%s: build ARP request: %w", e.Direction(), err)
	}
	if err := e.out.Transport.WriteFrame(req); err != nil {
		return fmt.Errorf("%s: send ARP request: %w", e.Direction(), err)
	}
	e.counters.onARPSent()
	if e.logger.IsDebugEnabled() {
		e.logger.Debugf("sent ARP request for %s on %s", dst, e.out.Name)
	}
	return nil
}
