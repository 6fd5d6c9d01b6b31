//go:build !linux

package security

// DefaultInterfaceSource returns the platform's interface source.
func DefaultInterfaceSource() InterfaceSource {
	return NetInterfaceSource{}
}
