//go:build linux

package transport

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// promiscMembership holds a PACKET_MR_PROMISC membership on an interface.
// The kernel reference-counts promiscuous mode, so closing only drops ours.
type promiscMembership struct {
	fd int
}

func promiscRequest(ifindex int) *unix.PacketMreq {
	return &unix.PacketMreq{
		Ifindex: int32(ifindex),
		Type:    unix.PACKET_MR_PROMISC,
	}
}

func joinPromisc(ifindex int) (*promiscMembership, error) {
	// Protocol 0: the socket receives nothing and only carries the membership.
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open packet socket")
	}
	if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, promiscRequest(ifindex)); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "failed to enable promiscuous mode on ifindex %d", ifindex)
	}
	return &promiscMembership{fd: fd}, nil
}

func (m *promiscMembership) Close() error {
	return unix.Close(m.fd)
}
