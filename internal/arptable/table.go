// Package arptable implements the ARP cache shared by both forwarding directions.
package arptable

import (
	"net"
	"net/netip"
	"sync"
)

// Table maps IPv4 addresses to hardware addresses.
// Implementations must be safe for concurrent use by both engines.
type Table interface {
	// Lookup returns the hardware address learned for ip.
	// Returns (mac, true) if found, (nil, false) otherwise.
	Lookup(ip netip.Addr) (net.HardwareAddr, bool)
	// Insert stores mac for ip, overwriting any earlier mapping.
	Insert(ip netip.Addr, mac net.HardwareAddr)
	// Len returns the number of learned entries.
	Len() int
}

// MapTable is a Table backed by a map under a single RWMutex.
// Entries never expire.
type MapTable struct {
	mu      sync.RWMutex
	entries map[netip.Addr]net.HardwareAddr
	onSize  func(n int)
}

var _ Table = (*MapTable)(nil)

// Option configures a MapTable.
type Option func(*MapTable)

// WithSizeObserver calls fn with the table size after every insert. fn runs
// under the write lock, so it sees sizes in insertion order; it must not call
// back into the table.
func WithSizeObserver(fn func(n int)) Option {
	return func(t *MapTable) { t.onSize = fn }
}

// New creates an empty table.
func New(opts ...Option) *MapTable {
	t := &MapTable{
		entries: make(map[netip.Addr]net.HardwareAddr),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Lookup returns a copy of the stored hardware address.
func (t *MapTable) Lookup(ip netip.Addr) (net.HardwareAddr, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mac, ok := t.entries[ip.Unmap()]
	if !ok {
		return nil, false
	}
	return cloneMAC(mac), true
}

// Insert stores a copy of mac, so later writes to the caller's slice are not observed.
func (t *MapTable) Insert(ip netip.Addr, mac net.HardwareAddr) {
	stored := cloneMAC(mac)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[ip.Unmap()] = stored
	if t.onSize != nil {
		t.onSize(len(t.entries))
	}
}

// Len returns the number of entries.
func (t *MapTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Snapshot returns a point-in-time copy of all entries.
func (t *MapTable) Snapshot() map[netip.Addr]net.HardwareAddr {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[netip.Addr]net.HardwareAddr, len(t.entries))
	for ip, mac := range t.entries {
		out[ip] = cloneMAC(mac)
	}
	return out
}

func cloneMAC(mac net.HardwareAddr) net.HardwareAddr {
	out := make(net.HardwareAddr, len(mac))
	copy(out, mac)
	return out
}
