package security

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"bckey/internal/config"
	apperrors "bckey/internal/errors"
)

// AddrLen is the number of hardware address bytes a fingerprint encodes.
const AddrLen = 6

// Rule names reported in Selection.Rule.
const (
	RulePreferred = "preferred-prefix"
	RuleFirst     = "first-enumerated"
)

// SelectionRule picks candidate interfaces by their position in the
// enumeration. Candidates are tried in order; the first whose address lookup
// succeeds ends the selection.
type SelectionRule struct {
	Name  string
	Match func(pos int, iface Interface) bool
}

// SelectionPolicy is an ordered list of rules. Earlier rules win.
type SelectionPolicy struct {
	Rules []SelectionRule
}

// Selection is the interface and address a policy settled on.
type Selection struct {
	Interface Interface
	Addr      net.HardwareAddr
	Rule      string
}

// AddrLookup queries one interface's hardware address.
type AddrLookup func(iface Interface) (net.HardwareAddr, error)

// NewSelectionPolicy builds the standard policy:
//  1. the first interface after position 0 whose name starts with one of
//     prefixes and whose address can be read;
//  2. otherwise the interface at position 0, if its address can be read.
func NewSelectionPolicy(prefixes []string) SelectionPolicy {
	prefixes = append([]string(nil), prefixes...)

	return SelectionPolicy{Rules: []SelectionRule{
		{
			Name: RulePreferred,
			Match: func(pos int, iface Interface) bool {
				return pos > 0 && hasAnyPrefix(iface.Name, prefixes)
			},
		},
		{
			Name: RuleFirst,
			Match: func(pos int, _ Interface) bool {
				return pos == 0
			},
		},
	}}
}

// DefaultSelectionPolicy prefers eth and wlan interfaces.
func DefaultSelectionPolicy() SelectionPolicy {
	return NewSelectionPolicy(config.DefaultPreferredPrefixes)
}

// Select applies the rules to ifaces. Lookup failures skip the interface.
// When nothing qualifies the error wraps ErrNoHardwareAddress and every
// lookup failure, if any.
func (p SelectionPolicy) Select(ifaces []Interface, lookup AddrLookup) (Selection, error) {
	var lookupErrs []error
	tried := make(map[int]bool, len(ifaces))

	for _, rule := range p.Rules {
		for pos, iface := range ifaces {
			if !rule.Match(pos, iface) || tried[pos] {
				continue
			}
			tried[pos] = true

			addr, err := lookup(iface)
			if err != nil {
				lookupErrs = append(lookupErrs, err)
				continue
			}
			return Selection{Interface: iface, Addr: normalizeAddr(addr), Rule: rule.Name}, nil
		}
	}

	if len(lookupErrs) == 0 {
		return Selection{}, apperrors.ErrNoHardwareAddress
	}
	return Selection{}, fmt.Errorf("%w: %w", apperrors.ErrNoHardwareAddress, errors.Join(lookupErrs...))
}

// normalizeAddr returns addr truncated or zero-padded to AddrLen bytes.
func normalizeAddr(addr net.HardwareAddr) net.HardwareAddr {
	out := make(net.HardwareAddr, AddrLen)
	copy(out, addr)
	return out
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
