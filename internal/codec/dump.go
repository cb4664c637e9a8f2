package codec

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/router/internal/log"
)

// Summarize renders one human-readable line per recognised layer of frame.
func Summarize(port string, frame []byte) []string {
	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.NoCopy)
	lines := make([]string, 0, 3)

	if eth, ok := packet.Layer(layers.LayerTypeEthernet).(*layers.Ethernet); ok {
		lines = append(lines, fmt.Sprintf("[%s]: %s > %s; ethertype: %s; length: %d",
			port, eth.SrcMAC, eth.DstMAC, eth.EthernetType, len(frame)))
	}
	if arp, ok := packet.Layer(layers.LayerTypeARP).(*layers.ARP); ok {
		lines = append(lines, fmt.Sprintf("[%s]: ARP packet: %s(%s) > %s(%s); operation: %s",
			port,
			formatMAC(arp.SourceHwAddress), formatIP(arp.SourceProtAddress),
			formatMAC(arp.DstHwAddress), formatIP(arp.DstProtAddress),
			arpOperation(arp.Operation)))
	}
	if ip4, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		lines = append(lines, fmt.Sprintf("[%s]: IPv4 packet: %s > %s; protocol: %s; ttl: %d; length: %d",
			port, ip4.SrcIP, ip4.DstIP, ip4.Protocol, ip4.TTL, ip4.Length))
	}
	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcp := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		lines = append(lines, fmt.Sprintf("[%s]: TCP segment: %d > %d; length: %d",
			port, tcp.SrcPort, tcp.DstPort, len(tcp.Payload)))
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udp := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		lines = append(lines, fmt.Sprintf("[%s]: UDP datagram: %d > %d; length: %d",
			port, udp.SrcPort, udp.DstPort, udp.Length))
	case packet.Layer(layers.LayerTypeICMPv4) != nil:
		icmp := packet.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
		lines = append(lines, fmt.Sprintf("[%s]: ICMP packet: %s; id: %d; seq: %d",
			port, icmp.TypeCode, icmp.Id, icmp.Seq))
	}
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		lines = append(lines, fmt.Sprintf("[%s]: malformed: %v", port, errLayer.Error()))
	}
	return lines
}

// Dump logs the frame summary at debug level. It never affects forwarding.
func Dump(logger log.Logger, port string, frame []byte) {
	if logger == nil || !logger.IsDebugEnabled() {
		return
	}
	for _, line := range Summarize(port, frame) {
		logger.Debug(line)
	}
}

func arpOperation(op uint16) string {
	switch op {
	case layers.ARPRequest:
		return "request"
	case layers.ARPReply:
		return "reply"
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}

func formatMAC(b []byte) string {
	if len(b) != 6 {
		return fmt.Sprintf("%x", b)
	}
	return cloneMAC(b).String()
}

func formatIP(b []byte) string {
	if len(b) != 4 {
		return fmt.Sprintf("%x", b)
	}
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}
