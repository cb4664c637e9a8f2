//go:build linux

package transport

import (
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket/afpacket"
	"github.com/pkg/errors"
	"github.com/tevino/abool"

	"firestige.xyz/router/internal/core"
	"firestige.xyz/router/internal/log"
)

// afpacketTransport AF_PACKET 收发实现
type afpacketTransport struct {
	tpacket *afpacket.TPacket
	promisc *promiscMembership // nil unless Options.Promiscuous
	options Options

	closeOnce sync.Once
	closed    *abool.AtomicBool
}

func openAFPacket(opts Options) (Transport, error) {
	bufferMB := opts.BufferSizeMB
	if bufferMB <= 0 {
		bufferMB = 8
	}
	frameSize, blockSize, numBlocks, err := recomputeSize(bufferMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute ring size")
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"interface":   opts.Interface,
		"frame_size":  frameSize,
		"block_size":  blockSize,
		"num_blocks":  numBlocks,
		"buffer_size": bufferMB,
		"snap_len":    opts.SnapLen,
	}).Debug("tpacket configuration")

	tpacket, err := afpacket.NewTPacket(
		afpacket.OptInterface(opts.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(time.Duration(opts.TimeoutMs)*time.Millisecond),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create TPacket on %s", opts.Interface)
	}

	if opts.BPFFilter != "" {
		rawBpf, err := compileBPF(opts.BPFFilter, opts.SnapLen)
		if err != nil {
			tpacket.Close()
			return nil, err
		}
		if err := tpacket.SetBPF(rawBpf); err != nil {
			tpacket.Close()
			return nil, errors.Wrap(err, "failed to set BPF filter")
		}
	}

	t := &afpacketTransport{tpacket: tpacket, options: opts, closed: abool.New()}
	if opts.Promiscuous {
		ifi, err := net.InterfaceByName(opts.Interface)
		if err != nil {
			tpacket.Close()
			return nil, errors.Wrapf(err, "failed to resolve %s", opts.Interface)
		}
		if t.promisc, err = joinPromisc(ifi.Index); err != nil {
			tpacket.Close()
			return nil, err
		}
	}
	return t, nil
}

// ReadFrame returns the next frame not sent by this port. ReadPacketData
// copies out of the ring, so the slice stays valid after the next read.
func (t *afpacketTransport) ReadFrame() ([]byte, error) {
	if t.closed.IsSet() {
		return nil, core.ErrTransportClosed
	}
	for {
		data, _, err := t.tpacket.ReadPacketData()
		if err != nil {
			if err == afpacket.ErrTimeout {
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

func (t *afpacketTransport) WriteFrame(frame []byte) error {
	if t.closed.IsSet() {
		return core.ErrTransportClosed
	}
	if err := t.tpacket.WritePacketData(frame); err != nil {
		return errors.Wrapf(err, "write to %s", t.options.Interface)
	}
	return nil
}

func (t *afpacketTransport) Close() (err error) {
	t.closeOnce.Do(func() {
		t.closed.Set()
		t.tpacket.Close()
		if t.promisc != nil {
			err = t.promisc.Close()
		}
	})
	return err
}
