package router

import (
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/router/internal/arptable"
	"firestige.xyz/router/internal/config"
	"firestige.xyz/router/internal/core"
	"firestige.xyz/router/internal/log"
	"firestige.xyz/router/internal/transport"
)

var (
	macA    = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x0a}
	macB    = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x0b}
	macHost = net.HardwareAddr{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}
	macPeer = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x99}

	ipA    = netip.MustParseAddr("192.168.1.1")
	ipB    = netip.MustParseAddr("10.0.0.1")
	ipHost = netip.MustParseAddr("10.0.0.5")
	ipPeer = netip.MustParseAddr("192.168.1.10")
)

func serialize(t testing.TB, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return append([]byte(nil), buf.Bytes()...)
}

// ipv4Frame builds an Ethernet/IPv4/UDP frame addressed to dstMAC.
func ipv4Frame(t testing.TB, dstMAC net.HardwareAddr, src, dst netip.Addr) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macPeer, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    src.AsSlice(),
		DstIP:    dst.AsSlice(),
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, udp, gopacket.Payload("payload"))
}

// arpFrame builds an ARP message from senderMAC/senderIP with the given target hardware address.
func arpFrame(t testing.TB, op uint16, senderMAC net.HardwareAddr, senderIP netip.Addr, targetMAC net.HardwareAddr, targetIP netip.Addr) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: senderMAC, DstMAC: targetMAC, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         op,
		SourceHwAddress:   senderMAC,
		SourceProtAddress: senderIP.AsSlice(),
		DstHwAddress:      targetMAC,
		DstProtAddress:    targetIP.AsSlice(),
	}
	return serialize(t, eth, arp)
}

func ipv6Frame(t testing.TB) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: macPeer, DstMAC: macA, EthernetType: layers.EthernetTypeIPv6}
	return serialize(t, eth, gopacket.Payload(make([]byte, 40)))
}

func rewritten(frame []byte, dst, src net.HardwareAddr) []byte {
	out := append(append(append([]byte(nil), dst...), src...), frame[12:]...)
	return out
}

func discardLogger(t testing.TB) log.Logger {
	t.Helper()
	l, err := log.New(io.Discard, config.LogConfig{Level: "debug", Format: "text"})
	require.NoError(t, err)
	return l
}

// mockTransport is a testify mock of transport.Transport.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) ReadFrame() ([]byte, error) {
	args := m.Called()
	frame, _ := args.Get(0).([]byte)
	return frame, args.Error(1)
}

func (m *mockTransport) WriteFrame(frame []byte) error {
	return m.Called(frame).Error(0)
}

func (m *mockTransport) Close() error {
	return m.Called().Error(0)
}

func (m *mockTransport) written() [][]byte {
	var out [][]byte
	for _, c := range m.Calls {
		if c.Method == "WriteFrame" {
			out = append(out, c.Arguments.Get(0).([]byte))
		}
	}
	return out
}

// sleepRecorder is a mock clock whose Sleep returns immediately after
// recording the duration and advancing mock time.
type sleepRecorder struct {
	*clock.Mock
	sleeps  []time.Duration
	onSleep func(n int)
}

func (c *sleepRecorder) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.Mock.Add(d)
	if c.onSleep != nil {
		c.onSleep(len(c.sleeps))
	}
}

// countingTable counts lookups on top of a real table.
type countingTable struct {
	arptable.Table
	lookups int
}

func (c *countingTable) Lookup(ip netip.Addr) (net.HardwareAddr, bool) {
	c.lookups++
	return c.Table.Lookup(ip)
}

// chanTransport feeds frames from a channel and records writes. Closing in
// makes the next read fail.
type chanTransport struct {
	in chan []byte

	mu      sync.Mutex
	written [][]byte

	closed atomic.Bool
}

func newChanTransport() *chanTransport {
	return &chanTransport{in: make(chan []byte, 16)}
}

func (c *chanTransport) ReadFrame() ([]byte, error) {
	if c.closed.Load() {
		return nil, core.ErrTransportClosed
	}
	select {
	case f, ok := <-c.in:
		if !ok {
			return nil, errors.New("link down")
		}
		return f, nil
	case <-time.After(5 * time.Millisecond):
		return nil, transport.ErrTimeout
	}
}

func (c *chanTransport) WriteFrame(frame []byte) error {
	if c.closed.Load() {
		return core.ErrTransportClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), frame...))
	return nil
}

func (c *chanTransport) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *chanTransport) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}
