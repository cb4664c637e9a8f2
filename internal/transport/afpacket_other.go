//go:build !linux

package transport

import "github.com/pkg/errors"

func openAFPacket(opts Options) (Transport, error) {
	return nil, errors.Errorf("afpacket transport is only available on linux, use capture.type pcap for %s", opts.Interface)
}
