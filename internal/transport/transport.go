// Package transport sends and receives raw Ethernet frames on a network
// interface through AF_PACKET or libpcap.
package transport

import (
	"fmt"
	"net"
	"strings"

	"github.com/pkg/errors"

	"firestige.xyz/router/internal/config"
)

// ErrTimeout is returned by ReadFrame when no frame arrived within the poll
// timeout. Callers check their context and read again.
var ErrTimeout = errors.New("transport: read timeout")

// Type 定义抓包类型
type Type string

const (
	TypeAFPacket Type = "afpacket"
	TypePCAP     Type = "pcap"
)

// ParseType converts a capture type name, case-insensitive.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "afpacket", "af_packet", "af-packet":
		return TypeAFPacket, nil
	case "pcap":
		return TypePCAP, nil
	default:
		return "", fmt.Errorf("unknown capture type: %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Transport is a bidirectional raw frame endpoint bound to one interface.
// ReadFrame and WriteFrame may be called from different goroutines.
type Transport interface {
	// ReadFrame blocks until one frame arrives or the poll timeout expires.
	// The returned slice is owned by the caller.
	ReadFrame() ([]byte, error)

	// WriteFrame transmits one complete Ethernet frame.
	WriteFrame(frame []byte) error

	Close() error
}

type Options struct {
	Type         Type
	Interface    string
	HardwareAddr net.HardwareAddr // frames sourced from this MAC are not delivered by ReadFrame
	SnapLen      int
	BufferSizeMB int
	TimeoutMs    int
	BPFFilter    string
	Promiscuous  bool
}

// DefaultOptions returns options for an AF_PACKET socket on iface.
func DefaultOptions(iface string) Options {
	return Options{
		Type:         TypeAFPacket,
		Interface:    iface,
		SnapLen:      65536,
		BufferSizeMB: 8,
		TimeoutMs:    100,
		Promiscuous:  true,
	}
}

// OptionsFromConfig builds transport options for iface from the capture section.
func OptionsFromConfig(iface *Interface, cfg config.CaptureConfig) (Options, error) {
	t, err := ParseType(cfg.Type)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Type:         t,
		Interface:    iface.Name,
		HardwareAddr: iface.HardwareAddr,
		SnapLen:      cfg.SnapLen,
		BufferSizeMB: cfg.BufferSizeMB,
		TimeoutMs:    cfg.TimeoutMs,
		BPFFilter:    cfg.BPFFilter,
		Promiscuous:  cfg.Promiscuous,
	}, nil
}

func (o Options) validate() error {
	if o.Interface == "" {
		return errors.New("interface name is required")
	}
	if o.SnapLen <= 0 {
		return errors.Errorf("snap_len must be positive, got %d", o.SnapLen)
	}
	if o.TimeoutMs <= 0 {
		return errors.Errorf("timeout_ms must be positive, got %d", o.TimeoutMs)
	}
	return nil
}

// Open opens a transport of the configured type.
func Open(opts Options) (Transport, error) {
	if err := opts.validate(); err != nil {
		return nil, errors.Wrapf(err, "open %s", opts.Interface)
	}
	switch opts.Type {
	case TypeAFPacket, "":
		return openAFPacket(opts)
	case TypePCAP:
		return openPCAP(opts)
	default:
		return nil, errors.Errorf("unsupported capture type: %s", opts.Type)
	}
}

// isEcho reports whether frame was transmitted by the local port.
func isEcho(frame []byte, self net.HardwareAddr) bool {
	if len(self) != 6 || len(frame) < 12 {
		return false
	}
	return string(frame[6:12]) == string(self)
}
