// Package router forwards frames between two ports, resolving destination
// hardware addresses through a shared ARP table.
package router

import (
	"net"
	"net/netip"

	"github.com/pkg/errors"

	"firestige.xyz/router/internal/core"
	"firestige.xyz/router/internal/transport"
)

// Port is one attachment point of the router. Immutable after startup.
type Port struct {
	Name         string
	HardwareAddr net.HardwareAddr
	IPv4         netip.Addr // sender address of ARP requests; 0.0.0.0 when invalid
	Transport    transport.Transport
}

// NewPort binds an opened transport to the interface it was opened on.
func NewPort(iface *transport.Interface, t transport.Transport) *Port {
	return &Port{
		Name:         iface.Name,
		HardwareAddr: iface.HardwareAddr,
		IPv4:         iface.IPv4,
		Transport:    t,
	}
}

func (p *Port) validate() error {
	if p == nil {
		return errors.New("port is nil")
	}
	if len(p.HardwareAddr) != 6 {
		return errors.Wrapf(core.ErrNoHardwareAddr, "port %s", p.Name)
	}
	if p.Transport == nil {
		return errors.Errorf("port %s has no transport", p.Name)
	}
	return nil
}
