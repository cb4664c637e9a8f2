package transport

import (
	"net"
	"net/netip"

	"github.com/pkg/errors"

	"firestige.xyz/router/internal/core"
)

// Interface describes one local network interface used as a router port.
type Interface struct {
	Name         string
	Index        int
	HardwareAddr net.HardwareAddr
	IPv4         netip.Addr // first IPv4 address; invalid when none is assigned
}

// Lookup resolves an interface name to its MAC and first IPv4 address.
func Lookup(name string) (*Interface, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, errors.Wrapf(core.ErrInterfaceNotFound, "%s: %v", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, errors.Wrapf(err, "list addresses of %s", name)
	}
	return newInterface(iface, addrs)
}

func newInterface(iface *net.Interface, addrs []net.Addr) (*Interface, error) {
	if len(iface.HardwareAddr) != 6 {
		return nil, errors.Wrapf(core.ErrNoHardwareAddr, "interface %s", iface.Name)
	}
	out := &Interface{
		Name:         iface.Name,
		Index:        iface.Index,
		HardwareAddr: append(net.HardwareAddr(nil), iface.HardwareAddr...),
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if addr, ok := netip.AddrFromSlice(ip.To4()); ok {
			out.IPv4 = addr
			break
		}
	}
	return out, nil
}
