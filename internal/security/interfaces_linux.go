//go:build linux

package security

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultInterfaceSource returns the platform's interface source.
func DefaultInterfaceSource() InterfaceSource {
	return IoctlInterfaceSource{}
}

// IoctlInterfaceSource queries hardware addresses with SIOCGIFHWADDR on a
// datagram socket. Interface order comes from net.Interfaces.
type IoctlInterfaceSource struct{}

// Open creates the control socket.
func (IoctlInterfaceSource) Open(ctx context.Context) (InterfaceSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	return &ioctlSession{fd: fd}, nil
}

// ifreqHWAddr mirrors struct ifreq with the ifr_hwaddr member selected.
type ifreqHWAddr struct {
	Name   [unix.IFNAMSIZ]byte
	Family uint16
	Data   [14]byte
	_      [8]byte
}

type ioctlSession struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

func (s *ioctlSession) Interfaces() ([]Interface, error) {
	return interfaceList()
}

func (s *ioctlSession) HardwareAddr(iface Interface) (net.HardwareAddr, error) {
	if len(iface.Name) == 0 || len(iface.Name) >= unix.IFNAMSIZ {
		return nil, fmt.Errorf("interface name %q: %w", iface.Name, unix.EINVAL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("interface %s: %w", iface.Name, unix.EBADF)
	}

	var req ifreqHWAddr
	copy(req.Name[:], iface.Name)

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(s.fd), uintptr(unix.SIOCGIFHWADDR), uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return nil, fmt.Errorf("SIOCGIFHWADDR %s: %w", iface.Name, errno)
	}

	addr := make(net.HardwareAddr, AddrLen)
	copy(addr, req.Data[:AddrLen])
	return addr, nil
}

// Close releases the socket. Calling it more than once is a no-op.
func (s *ioctlSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return os.NewSyscallError("close", unix.Close(s.fd))
}
