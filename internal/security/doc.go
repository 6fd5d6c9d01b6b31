// Package security derives the machine fingerprint used to bind a license to
// one host.
//
// The fingerprint is a network hardware address rendered as 12 lowercase hex
// digits. Which interface supplies the address is decided by a
// SelectionPolicy, an ordered list of rules applied to the interfaces in
// enumeration order. Only interfaces carrying an IPv4 address are enumerated,
// the same set SIOCGIFCONF reports, so an interface that is down or
// unconfigured never takes position 0:
//
//  1. the first interface after position 0 whose name has a preferred
//     prefix (eth and wlan by default) and whose address can be read;
//  2. otherwise the interface at position 0, if its address can be read.
//
// An interface whose address query fails is skipped. If no rule yields an
// address the deriver fails with ErrNoHardwareAddress.
//
// On Linux addresses are read with the SIOCGIFHWADDR ioctl on a datagram
// socket opened per call; elsewhere the net package is used. The handle is
// released on every path.
package security
