package security

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bckey/internal/errors"
)

var errNoDevice = errors.New("no such device")

func mac(b ...byte) net.HardwareAddr { return net.HardwareAddr(b) }

func ifaceList(names ...string) []Interface {
	out := make([]Interface, len(names))
	for i, name := range names {
		out[i] = Interface{Index: i + 1, Name: name}
	}
	return out
}

// lookupTable answers from addrs and fails for names missing from it.
func lookupTable(addrs map[string]net.HardwareAddr, calls *[]string) AddrLookup {
	return func(iface Interface) (net.HardwareAddr, error) {
		if calls != nil {
			*calls = append(*calls, iface.Name)
		}
		addr, ok := addrs[iface.Name]
		if !ok {
			return nil, errNoDevice
		}
		return addr, nil
	}
}

func TestSelectionPolicy_Select(t *testing.T) {
	lo := mac(0, 0, 0, 0, 0, 0)
	eth0 := mac(0x00, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e)
	eth1 := mac(0x02, 0x00, 0x00, 0x00, 0x00, 0x01)
	wlan0 := mac(0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff)

	tests := []struct {
		name      string
		ifaces    []Interface
		addrs     map[string]net.HardwareAddr
		wantName  string
		wantAddr  net.HardwareAddr
		wantRule  string
		wantCalls []string
	}{
		{
			name:      "preferred interface after loopback wins",
			ifaces:    ifaceList("lo", "eth0"),
			addrs:     map[string]net.HardwareAddr{"lo": lo, "eth0": eth0},
			wantName:  "eth0",
			wantAddr:  eth0,
			wantRule:  RulePreferred,
			wantCalls: []string{"eth0"},
		},
		{
			name:      "first preferred match stops enumeration",
			ifaces:    ifaceList("lo", "wlan0", "eth0"),
			addrs:     map[string]net.HardwareAddr{"lo": lo, "wlan0": wlan0, "eth0": eth0},
			wantName:  "wlan0",
			wantAddr:  wlan0,
			wantRule:  RulePreferred,
			wantCalls: []string{"wlan0"},
		},
		{
			name:      "preferred name at position 0 is overridden by a later match",
			ifaces:    ifaceList("eth0", "eth1"),
			addrs:     map[string]net.HardwareAddr{"eth0": eth0, "eth1": eth1},
			wantName:  "eth1",
			wantAddr:  eth1,
			wantRule:  RulePreferred,
			wantCalls: []string{"eth1"},
		},
		{
			name:      "non-preferred names fall back to position 0",
			ifaces:    ifaceList("lo", "docker0", "enp3s0"),
			addrs:     map[string]net.HardwareAddr{"lo": lo, "docker0": eth1, "enp3s0": eth0},
			wantName:  "lo",
			wantAddr:  lo,
			wantRule:  RuleFirst,
			wantCalls: []string{"lo"},
		},
		{
			name:      "failed preferred lookup is skipped",
			ifaces:    ifaceList("lo", "eth0", "wlan0"),
			addrs:     map[string]net.HardwareAddr{"lo": lo, "wlan0": wlan0},
			wantName:  "wlan0",
			wantAddr:  wlan0,
			wantRule:  RulePreferred,
			wantCalls: []string{"eth0", "wlan0"},
		},
		{
			name:      "all preferred lookups fail",
			ifaces:    ifaceList("lo", "eth0"),
			addrs:     map[string]net.HardwareAddr{"lo": lo},
			wantName:  "lo",
			wantAddr:  lo,
			wantRule:  RuleFirst,
			wantCalls: []string{"eth0", "lo"},
		},
		{
			name:      "single interface",
			ifaces:    ifaceList("eth0"),
			addrs:     map[string]net.HardwareAddr{"eth0": eth0},
			wantName:  "eth0",
			wantAddr:  eth0,
			wantRule:  RuleFirst,
			wantCalls: []string{"eth0"},
		},
		{
			name:      "long address is truncated",
			ifaces:    ifaceList("lo", "ib0", "eth0"),
			addrs:     map[string]net.HardwareAddr{"eth0": mac(1, 2, 3, 4, 5, 6, 7, 8)},
			wantName:  "eth0",
			wantAddr:  mac(1, 2, 3, 4, 5, 6),
			wantRule:  RulePreferred,
			wantCalls: []string{"eth0"},
		},
		{
			name:      "empty address is zero padded",
			ifaces:    ifaceList("lo"),
			addrs:     map[string]net.HardwareAddr{"lo": nil},
			wantName:  "lo",
			wantAddr:  lo,
			wantRule:  RuleFirst,
			wantCalls: []string{"lo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			sel, err := DefaultSelectionPolicy().Select(tt.ifaces, lookupTable(tt.addrs, &calls))
			require.NoError(t, err)

			assert.Equal(t, tt.wantName, sel.Interface.Name)
			assert.Equal(t, tt.wantAddr, sel.Addr)
			assert.Len(t, sel.Addr, AddrLen)
			assert.Equal(t, tt.wantRule, sel.Rule)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestSelectionPolicy_NoAddress(t *testing.T) {
	tests := []struct {
		name         string
		ifaces       []Interface
		addrs        map[string]net.HardwareAddr
		wantNoDevice bool
	}{
		{
			name:   "no interfaces",
			ifaces: nil,
		},
		{
			name:         "every lookup fails",
			ifaces:       ifaceList("lo", "eth0", "wlan0"),
			wantNoDevice: true,
		},
		{
			name:         "only a non-preferred later interface answers",
			ifaces:       ifaceList("lo", "docker0"),
			addrs:        map[string]net.HardwareAddr{"docker0": mac(1, 2, 3, 4, 5, 6)},
			wantNoDevice: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultSelectionPolicy().Select(tt.ifaces, lookupTable(tt.addrs, nil))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrNoHardwareAddress)
			assert.Equal(t, tt.wantNoDevice, errors.Is(err, errNoDevice))
		})
	}
}

func TestNewSelectionPolicy_Prefixes(t *testing.T) {
	ifaces := ifaceList("lo", "eth0", "enp3s0")
	addrs := map[string]net.HardwareAddr{
		"lo":     mac(0, 0, 0, 0, 0, 0),
		"eth0":   mac(1, 1, 1, 1, 1, 1),
		"enp3s0": mac(2, 2, 2, 2, 2, 2),
	}

	sel, err := NewSelectionPolicy([]string{"enp"}).Select(ifaces, lookupTable(addrs, nil))
	require.NoError(t, err)
	assert.Equal(t, "enp3s0", sel.Interface.Name)

	sel, err = NewSelectionPolicy(nil).Select(ifaces, lookupTable(addrs, nil))
	require.NoError(t, err)
	assert.Equal(t, "lo", sel.Interface.Name)
	assert.Equal(t, RuleFirst, sel.Rule)

	sel, err = NewSelectionPolicy([]string{""}).Select(ifaces, lookupTable(addrs, nil))
	require.NoError(t, err)
	assert.Equal(t, "lo", sel.Interface.Name, "an empty prefix matches nothing")
}

func TestNewSelectionPolicy_CopiesPrefixes(t *testing.T) {
	prefixes := []string{"eth"}
	policy := NewSelectionPolicy(prefixes)
	prefixes[0] = "wlan"

	sel, err := policy.Select(ifaceList("lo", "eth0"), lookupTable(map[string]net.HardwareAddr{
		"lo":   mac(0, 0, 0, 0, 0, 0),
		"eth0": mac(1, 2, 3, 4, 5, 6),
	}, nil))
	require.NoError(t, err)
	assert.Equal(t, "eth0", sel.Interface.Name)
}

func TestSelectionPolicy_CustomRules(t *testing.T) {
	policy := SelectionPolicy{Rules: []SelectionRule{
		{Name: "last", Match: func(pos int, _ Interface) bool { return pos == 2 }},
		{Name: "any", Match: func(int, Interface) bool { return true }},
	}}
	addrs := map[string]net.HardwareAddr{
		"a": mac(1, 1, 1, 1, 1, 1),
		"b": mac(2, 2, 2, 2, 2, 2),
	}

	var calls []string
	sel, err := policy.Select(ifaceList("a", "b", "c"), lookupTable(addrs, &calls))
	require.NoError(t, err)
	assert.Equal(t, "a", sel.Interface.Name)
	assert.Equal(t, "any", sel.Rule)
	assert.Equal(t, []string{"c", "a"}, calls, "an interface is looked up at most once")
}

func TestNormalizeAddr(t *testing.T) {
	src := mac(1, 2, 3, 4, 5, 6)
	out := normalizeAddr(src)
	out[0] = 0xff
	assert.Equal(t, byte(1), src[0], "normalizeAddr must not alias its input")
	assert.Equal(t, mac(0xab, 0, 0, 0, 0, 0), normalizeAddr(mac(0xab)))
}
