// File: internal/transport/address.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"net/netip"

	"github.com/momentics/hioload-tcp/api"
)

// AnyAddress is the textual wildcard accepted by Bind.
const AnyAddress = "0.0.0.0"

// ParseAddress resolves the bind address. The empty string and AnyAddress
// select the IPv4 wildcard; IPv4-mapped IPv6 literals are unmapped.
func ParseAddress(address string) (netip.Addr, error) {
	if address == "" || address == AnyAddress {
		return netip.IPv4Unspecified(), nil
	}
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse address %q: %w", address, api.ErrInvalidArgument)
	}
	if addr.Zone() != "" {
		return netip.Addr{}, fmt.Errorf("zoned address %q: %w", address, api.ErrNotSupported)
	}
	return addr.Unmap(), nil
}

// validPort reports whether port fits a TCP port number.
func validPort(port int) bool {
	return port >= 0 && port <= 0xffff
}
