package transport

import (
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
	"golang.org/x/net/bpf"
)

// compileBPF compiles a tcpdump-style filter into raw instructions for
// SO_ATTACH_FILTER.
func compileBPF(filter string, snapLen int) ([]bpf.RawInstruction, error) {
	pcapBpf, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compile BPF filter %q", filter)
	}

	raw := make([]bpf.RawInstruction, len(pcapBpf))
	for i, ins := range pcapBpf {
		raw[i] = bpf.RawInstruction{Op: ins.Code, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return raw, nil
}
