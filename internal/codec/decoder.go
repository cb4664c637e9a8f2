// Package codec decodes and builds the Ethernet, ARP and IPv4 frames the router handles.
package codec

import (
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"

	"firestige.xyz/router/internal/core"
)

// Frame is the decoded view of an inbound frame.
// ARP is set only for ARP frames, DstIP only for IPv4 frames.
type Frame struct {
	Ethernet core.EthernetHeader
	ARP      *core.ARPHeader
	DstIP    netip.Addr
}

// IsARP reports whether the frame carries an ARP message.
func (f *Frame) IsARP() bool { return f.Ethernet.EtherType == core.EtherTypeARP }

// IsIPv4 reports whether the frame carries an IPv4 packet.
func (f *Frame) IsIPv4() bool { return f.Ethernet.EtherType == core.EtherTypeIPv4 }

// Decoder decodes Ethernet/ARP/IPv4 headers with a reusable gopacket parser.
// A Decoder is not safe for concurrent use; each engine owns one.
type Decoder struct {
	eth     layers.Ethernet
	arp     layers.ARP
	ip4     layers.IPv4
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
}

// NewDecoder creates a decoder.
func NewDecoder() *Decoder {
	d := &Decoder{decoded: make([]gopacket.LayerType, 0, 4)}
	d.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &d.eth, &d.arp, &d.ip4)
	// TCP/UDP and everything else past the headers we route on is not decoded.
	d.parser.IgnoreUnsupported = true
	return d
}

// Decode parses frame. Frames that cannot be parsed into the header structure
// their EtherType announces return an error wrapping core.ErrMalformedFrame.
// Frames with any EtherType other than ARP or IPv4 decode successfully; the
// caller decides what to do with them.
func (d *Decoder) Decode(frame []byte) (*Frame, error) {
	if len(frame) < core.EthernetHeaderLen {
		return nil, errors.Wrapf(core.ErrMalformedFrame, "frame length %d below ethernet header", len(frame))
	}

	err := d.parser.DecodeLayers(frame, &d.decoded)
	if len(d.decoded) == 0 {
		return nil, errors.Wrapf(core.ErrMalformedFrame, "ethernet: %v", err)
	}

	out := &Frame{
		Ethernet: core.EthernetHeader{
			DstMAC:    cloneMAC(d.eth.DstMAC),
			SrcMAC:    cloneMAC(d.eth.SrcMAC),
			EtherType: uint16(d.eth.EthernetType),
		},
	}

	switch out.Ethernet.EtherType {
	case core.EtherTypeARP:
		if err != nil || !d.has(layers.LayerTypeARP) {
			return nil, errors.Wrapf(core.ErrMalformedFrame, "arp: %v", err)
		}
		arp, err := arpHeader(&d.arp)
		if err != nil {
			return nil, err
		}
		out.ARP = arp
	case core.EtherTypeIPv4:
		if err != nil || !d.has(layers.LayerTypeIPv4) {
			return nil, errors.Wrapf(core.ErrMalformedFrame, "ipv4: %v", err)
		}
		dst, ok := netip.AddrFromSlice(d.ip4.DstIP.To4())
		if !ok {
			return nil, errors.Wrap(core.ErrMalformedFrame, "ipv4: bad destination address")
		}
		out.DstIP = dst
	}
	return out, nil
}

func (d *Decoder) has(t gopacket.LayerType) bool {
	for _, lt := range d.decoded {
		if lt == t {
			return true
		}
	}
	return false
}

func arpHeader(arp *layers.ARP) (*core.ARPHeader, error) {
	// Hardware and protocol types are not checked: any ARP with 6-byte
	// hardware and 4-byte protocol addresses is read as Ethernet/IPv4.
	if arp.HwAddressSize != 6 || arp.ProtAddressSize != 4 {
		return nil, errors.Wrapf(core.ErrMalformedFrame,
			"arp: unsupported address sizes hlen=%d plen=%d",
			arp.HwAddressSize, arp.ProtAddressSize)
	}
	sender, _ := netip.AddrFromSlice(arp.SourceProtAddress)
	target, _ := netip.AddrFromSlice(arp.DstProtAddress)
	return &core.ARPHeader{
		Operation: core.ARPOperation(arp.Operation),
		SenderHW:  cloneMAC(arp.SourceHwAddress),
		SenderIP:  sender,
		TargetHW:  cloneMAC(arp.DstHwAddress),
		TargetIP:  target,
	}, nil
}

// DestinationIPv4 returns the destination address of the IPv4 packet carried by frame.
func DestinationIPv4(frame []byte) (netip.Addr, error) {
	f, err := NewDecoder().Decode(frame)
	if err != nil {
		return netip.Addr{}, err
	}
	if !f.IsIPv4() {
		return netip.Addr{}, errors.Wrapf(core.ErrUnsupportedEtherType, "ethertype %#04x", f.Ethernet.EtherType)
	}
	return f.DstIP, nil
}

func cloneMAC(mac []byte) net.HardwareAddr {
	out := make(net.HardwareAddr, len(mac))
	copy(out, mac)
	return out
}
