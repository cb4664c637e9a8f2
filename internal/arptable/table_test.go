package arptable

import (
	"fmt"
	"net"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMAC(t *testing.T, s string) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC(s)
	require.NoError(t, err)
	return mac
}

func TestLookupMissingReturnsNotFound(t *testing.T) {
	table := New()

	mac, ok := table.Lookup(netip.MustParseAddr("10.0.0.5"))
	assert.False(t, ok)
	assert.Nil(t, mac)
	assert.Equal(t, 0, table.Len())
}

func TestInsertThenLookup(t *testing.T) {
	table := New()
	ip := netip.MustParseAddr("10.0.0.5")
	want := mustMAC(t, "aa:aa:aa:aa:aa:aa")

	table.Insert(ip, want)

	got, ok := table.Lookup(ip)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, table.Len())
}

func TestLatestInsertWins(t *testing.T) {
	table := New()
	ip := netip.MustParseAddr("192.168.1.10")

	table.Insert(ip, mustMAC(t, "00:11:22:33:44:55"))
	table.Insert(ip, mustMAC(t, "66:77:88:99:aa:bb"))
	table.Insert(ip, mustMAC(t, "de:ad:be:ef:00:01"))

	got, ok := table.Lookup(ip)
	require.True(t, ok)
	assert.Equal(t, mustMAC(t, "de:ad:be:ef:00:01"), got)
	assert.Equal(t, 1, table.Len(), "one address per key")
}

func TestIPv4MappedKeysShareEntry(t *testing.T) {
	table := New()
	table.Insert(netip.MustParseAddr("::ffff:10.0.0.7"), mustMAC(t, "02:00:00:00:00:07"))

	got, ok := table.Lookup(netip.MustParseAddr("10.0.0.7"))
	require.True(t, ok)
	assert.Equal(t, mustMAC(t, "02:00:00:00:00:07"), got)
}

func TestInsertCopiesHardwareAddr(t *testing.T) {
	table := New()
	ip := netip.MustParseAddr("10.1.1.1")
	mac := mustMAC(t, "02:00:00:00:00:01")

	table.Insert(ip, mac)
	mac[5] = 0xff

	got, _ := table.Lookup(ip)
	assert.Equal(t, byte(0x01), got[5])

	got[0] = 0xee
	again, _ := table.Lookup(ip)
	assert.Equal(t, byte(0x02), again[0], "lookup result must not alias the stored entry")
}

func TestSnapshot(t *testing.T) {
	table := New()
	table.Insert(netip.MustParseAddr("10.0.0.1"), mustMAC(t, "02:00:00:00:00:01"))
	table.Insert(netip.MustParseAddr("10.0.0.2"), mustMAC(t, "02:00:00:00:00:02"))

	snap := table.Snapshot()
	assert.Len(t, snap, 2)

	table.Insert(netip.MustParseAddr("10.0.0.3"), mustMAC(t, "02:00:00:00:00:03"))
	assert.Len(t, snap, 2, "snapshot is detached from the table")
}

func TestConcurrentInsertLookup(t *testing.T) {
	table := New()
	var wg sync.WaitGroup

	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 256; i++ {
				ip := netip.AddrFrom4([4]byte{10, byte(w), 0, byte(i)})
				mac := net.HardwareAddr{0x02, 0, 0, byte(w), 0, byte(i)}
				table.Insert(ip, mac)
				got, ok := table.Lookup(ip)
				if !ok || got.String() != mac.String() {
					panic(fmt.Sprintf("lookup after insert: %v %v", got, ok))
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 512, table.Len())
}

func TestSizeObserverSeesSizesInOrder(t *testing.T) {
	var sizes []int
	table := New(WithSizeObserver(func(n int) { sizes = append(sizes, n) }))
	var wg sync.WaitGroup

	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 128; i++ {
				table.Insert(netip.AddrFrom4([4]byte{10, byte(w), 0, byte(i)}), net.HardwareAddr{0x02, 0, 0, byte(w), 0, byte(i)})
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, sizes, 256)
	for i, n := range sizes {
		assert.Equal(t, i+1, n)
	}

	// Overwriting an entry reports the unchanged size.
	table.Insert(netip.AddrFrom4([4]byte{10, 0, 0, 0}), mustMAC(t, "02:00:00:00:00:ff"))
	assert.Equal(t, 256, sizes[len(sizes)-1])
	assert.Equal(t, table.Len(), sizes[len(sizes)-1])
}

func BenchmarkLookup(b *testing.B) {
	table := New()
	ip := netip.MustParseAddr("10.0.0.5")
	table.Insert(ip, net.HardwareAddr{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := table.Lookup(ip); !ok {
			b.Fatal("miss")
		}
	}
}
