// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used as the "reason" label of FramesDroppedTotal.
const (
	DropReasonUnresolved           = "unresolved"
	DropReasonUnsupportedEtherType = "unsupported_ethertype"
	DropReasonMalformed            = "malformed"
)

var (
	// FramesReceivedTotal counts frames read from each port
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_frames_received_total",
			Help: "Total number of frames received",
		},
		[]string{"port"},
	)

	// FramesForwardedTotal counts payload frames forwarded from one port to the other
	FramesForwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_frames_forwarded_total",
			Help: "Total number of frames forwarded",
		},
		[]string{"in", "out"},
	)

	// FramesDroppedTotal counts inbound frames that were not forwarded
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_frames_dropped_total",
			Help: "Total number of frames dropped",
		},
		[]string{"in", "reason"},
	)

	// ARPRequestsSentTotal counts ARP requests broadcast on each port
	ARPRequestsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_arp_requests_sent_total",
			Help: "Total number of ARP requests sent",
		},
		[]string{"port"},
	)

	// ARPLearnedTotal counts ARP table updates per receiving port
	ARPLearnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_arp_learned_total",
			Help: "Total number of ARP table updates",
		},
		[]string{"port"},
	)

	// ARPTableEntries tracks the current size of the shared ARP table
	ARPTableEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_arp_table_entries",
			Help: "Current number of entries in the ARP table",
		},
	)

	// ResolutionAttempts measures how many lookups a forwarded frame needed
	ResolutionAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_resolution_attempts",
			Help:    "Number of ARP table lookups needed before a frame was forwarded",
			Buckets: prometheus.LinearBuckets(1, 1, 5), // 1, 2, 3, 4, 5
		},
		[]string{"in"},
	)
)
