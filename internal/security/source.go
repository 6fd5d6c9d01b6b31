package security

import (
	"context"
	"fmt"
	"net"
)

// Interface identifies one network interface as enumerated by an
// InterfaceSession. Index is the kernel interface index.
type Interface struct {
	Index int
	Name  string
}

// InterfaceSource opens sessions against the host's network interfaces.
type InterfaceSource interface {
	Open(ctx context.Context) (InterfaceSession, error)
}

// InterfaceSession is an open handle used to enumerate interfaces and query
// their hardware addresses. Callers must Close it.
type InterfaceSession interface {
	Interfaces() ([]Interface, error)
	HardwareAddr(iface Interface) (net.HardwareAddr, error)
	Close() error
}

// NetInterfaceSource reads interfaces and addresses through the net package.
// It needs no privileged handle and works on every platform.
type NetInterfaceSource struct{}

// Open snapshots the interface table.
func (NetInterfaceSource) Open(ctx context.Context) (InterfaceSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &netSession{}, nil
}

type netSession struct {
	addrs map[string]net.HardwareAddr
}

func (s *netSession) Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	s.addrs = make(map[string]net.HardwareAddr, len(ifaces))
	for _, iface := range ifaces {
		s.addrs[iface.Name] = iface.HardwareAddr
	}
	return ipv4Configured(ifaces, interfaceAddrs), nil
}

func (s *netSession) HardwareAddr(iface Interface) (net.HardwareAddr, error) {
	if addr, ok := s.addrs[iface.Name]; ok {
		return addr, nil
	}

	found, err := net.InterfaceByName(iface.Name)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", iface.Name, err)
	}
	return found.HardwareAddr, nil
}

func (s *netSession) Close() error {
	s.addrs = nil
	return nil
}

// interfaceList returns the interfaces carrying an IPv4 address, in
// net.Interfaces order. This is the set SIOCGIFCONF reports.
func interfaceList() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}
	return ipv4Configured(ifaces, interfaceAddrs), nil
}

func interfaceAddrs(iface net.Interface) ([]net.Addr, error) {
	return iface.Addrs()
}

// ipv4Configured keeps the interfaces with at least one IPv4 address,
// preserving order. An interface whose addresses cannot be read is dropped.
func ipv4Configured(ifaces []net.Interface, addrsOf func(net.Interface) ([]net.Addr, error)) []Interface {
	out := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := addrsOf(iface)
		if err != nil || !hasIPv4(addrs) {
			continue
		}
		out = append(out, Interface{Index: iface.Index, Name: iface.Name})
	}
	return out
}

func hasIPv4(addrs []net.Addr) bool {
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}
		if ip.To4() != nil {
			return true
		}
	}
	return false
}
