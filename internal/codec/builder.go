package codec

import (
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"

	"firestige.xyz/router/internal/core"
)

var (
	// BroadcastMAC is the Ethernet broadcast address.
	BroadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	zeroMAC = net.HardwareAddr{0, 0, 0, 0, 0, 0}
)

// BuildARPRequest builds a broadcast ARP request asking for target, sent by
// the port with hardware address srcMAC and protocol address srcIP.
// An invalid srcIP is encoded as 0.0.0.0.
func BuildARPRequest(srcMAC net.HardwareAddr, srcIP, target netip.Addr) ([]byte, error) {
	if len(srcMAC) != 6 {
		return nil, errors.Wrapf(core.ErrNoHardwareAddr, "source %v", srcMAC)
	}
	if !target.Unmap().Is4() {
		return nil, errors.Wrapf(core.ErrNotIPv4, "target %v", target)
	}
	sender := netip.IPv4Unspecified()
	if srcIP.Unmap().Is4() {
		sender = srcIP.Unmap()
	}
	senderBytes := sender.As4()
	targetBytes := target.Unmap().As4()

	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       BroadcastMAC,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte(srcMAC),
		SourceProtAddress: senderBytes[:],
		DstHwAddress:      []byte(zeroMAC),
		DstProtAddress:    targetBytes[:],
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, arp); err != nil {
		return nil, errors.Wrap(err, "serialize arp request")
	}
	return buf.Bytes(), nil
}

// Rewrite returns a new frame addressed from src to dst. The EtherType and
// everything after it are copied from frame unchanged; frame is not modified.
func Rewrite(frame []byte, dst, src net.HardwareAddr) []byte {
	out := make([]byte, 0, len(frame))
	out = append(out, dst[:6]...)
	out = append(out, src[:6]...)
	out = append(out, frame[12:]...)
	return out
}
