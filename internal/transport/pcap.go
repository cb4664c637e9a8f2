package transport

import (
	"sync"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
	"github.com/tevino/abool"

	"firestige.xyz/router/internal/core"
)

type pcapTransport struct {
	handle  *pcap.Handle
	options Options

	closeOnce sync.Once
	closed    *abool.AtomicBool
}

func openPCAP(opts Options) (Transport, error) {
	handle, err := pcap.OpenLive(opts.Interface, int32(opts.SnapLen), opts.Promiscuous, time.Duration(opts.TimeoutMs)*time.Millisecond)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pcap handle on %s", opts.Interface)
	}

	// Frames we transmit must not come back through our own reader.
	if err := handle.SetDirection(pcap.DirectionIn); err != nil {
		handle.Close()
		return nil, errors.Wrap(err, "failed to set capture direction")
	}

	if opts.BPFFilter != "" {
		if err := handle.SetBPFFilter(opts.BPFFilter); err != nil {
			handle.Close()
			return nil, errors.Wrapf(err, "failed to set BPF filter %q", opts.BPFFilter)
		}
	}

	return &pcapTransport{handle: handle, options: opts, closed: abool.New()}, nil
}

func (t *pcapTransport) ReadFrame() ([]byte, error) {
	if t.closed.IsSet() {
		return nil, core.ErrTransportClosed
	}
	for {
		data, _, err := t.handle.ReadPacketData()
		if err != nil {
			if err == pcap.NextErrorTimeoutExpired {
				return nil, ErrTimeout
			}
			return nil, errors.Wrapf(err, "read from %s", t.options.Interface)
		}
		if isEcho(data, t.options.HardwareAddr) {
			continue
		}
		return data, nil
	}
}

func (t *pcapTransport) WriteFrame(frame []byte) error {
	if t.closed.IsSet() {
		return core.ErrTransportClosed
	}
	if err := t.handle.WritePacketData(frame); err != nil {
		return errors.Wrapf(err, "write to %s", t.options.Interface)
	}
	return nil
}

func (t *pcapTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Set()
		t.handle.Close()
	})
	return nil
}
