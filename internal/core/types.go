// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net"
	"net/netip"
)

// EtherType values the router distinguishes.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
)

// EthernetHeaderLen is the length of an untagged Ethernet II header.
const EthernetHeaderLen = 14

// EthernetHeader represents L2 Ethernet frame header.
type EthernetHeader struct {
	DstMAC    net.HardwareAddr
	SrcMAC    net.HardwareAddr
	EtherType uint16
}

// ARPOperation is the ARP opcode.
type ARPOperation uint16

const (
	ARPRequest ARPOperation = 1
	ARPReply   ARPOperation = 2
)

func (op ARPOperation) String() string {
	switch op {
	case ARPRequest:
		return "request"
	case ARPReply:
		return "reply"
	default:
		return fmt.Sprintf("op(%d)", uint16(op))
	}
}

// ARPHeader is an Ethernet/IPv4 ARP message body.
type ARPHeader struct {
	Operation ARPOperation
	SenderHW  net.HardwareAddr
	SenderIP  netip.Addr
	TargetHW  net.HardwareAddr
	TargetIP  netip.Addr
}
