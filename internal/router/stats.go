package router

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/router/internal/metrics"
)

// counters holds per-engine counters. Each event is recorded both in the
// atomics reported by Stats and in the process-wide Prometheus collectors.
type counters struct {
	received           atomic.Uint64
	forwarded          atomic.Uint64
	arpLearned         atomic.Uint64
	arpIgnored         atomic.Uint64
	arpRequestsSent    atomic.Uint64
	droppedUnresolved  atomic.Uint64
	droppedUnsupported atomic.Uint64
	droppedMalformed   atomic.Uint64

	promReceived    prometheus.Counter
	promForwarded   prometheus.Counter
	promLearned     prometheus.Counter
	promARPSent     prometheus.Counter
	promAttempts    prometheus.Observer
	promUnresolved  prometheus.Counter
	promUnsupported prometheus.Counter
	promMalformed   prometheus.Counter
}

func newCounters(in, out string) *counters {
	return &counters{
		promReceived:    metrics.FramesReceivedTotal.WithLabelValues(in),
		promForwarded:   metrics.FramesForwardedTotal.WithLabelValues(in, out),
		promLearned:     metrics.ARPLearnedTotal.WithLabelValues(in),
		promARPSent:     metrics.ARPRequestsSentTotal.WithLabelValues(out),
		promAttempts:    metrics.ResolutionAttempts.WithLabelValues(in),
		promUnresolved:  metrics.FramesDroppedTotal.WithLabelValues(in, metrics.DropReasonUnresolved),
		promUnsupported: metrics.FramesDroppedTotal.WithLabelValues(in, metrics.DropReasonUnsupportedEtherType),
		promMalformed:   metrics.FramesDroppedTotal.WithLabelValues(in, metrics.DropReasonMalformed),
	}
}

func (c *counters) onReceived() {
	c.received.Add(1)
	c.promReceived.Inc()
}

func (c *counters) onForwarded(attempts int) {
	c.forwarded.Add(1)
	c.promForwarded.Inc()
	c.promAttempts.Observe(float64(attempts))
}

func (c *counters) onLearned() {
	c.arpLearned.Add(1)
	c.promLearned.Inc()
}

func (c *counters) onARPIgnored() {
	c.arpIgnored.Add(1)
}

func (c *counters) onARPSent() {
	c.arpRequestsSent.Add(1)
	c.promARPSent.Inc()
}

func (c *counters) onDropped(reason string) {
	switch reason {
	case metrics.DropReasonUnresolved:
		c.droppedUnresolved.Add(1)
		c.promUnresolved.Inc()
	case metrics.DropReasonUnsupportedEtherType:
		c.droppedUnsupported.Add(1)
		c.promUnsupported.Inc()
	case metrics.DropReasonMalformed:
		c.droppedMalformed.Add(1)
		c.promMalformed.Inc()
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Received:           c.received.Load(),
		Forwarded:          c.forwarded.Load(),
		ARPLearned:         c.arpLearned.Load(),
		ARPIgnored:         c.arpIgnored.Load(),
		ARPRequestsSent:    c.arpRequestsSent.Load(),
		DroppedUnresolved:  c.droppedUnresolved.Load(),
		DroppedUnsupported: c.droppedUnsupported.Load(),
		DroppedMalformed:   c.droppedMalformed.Load(),
	}
}

// Stats represents engine statistics.
type Stats struct {
	Received           uint64
	Forwarded          uint64
	ARPLearned         uint64
	ARPIgnored         uint64
	ARPRequestsSent    uint64
	DroppedUnresolved  uint64
	DroppedUnsupported uint64
	DroppedMalformed   uint64
}

// Dropped returns the total of all drop counters.
func (s Stats) Dropped() uint64 {
	return s.DroppedUnresolved + s.DroppedUnsupported + s.DroppedMalformed
}
