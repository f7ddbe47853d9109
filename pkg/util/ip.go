package util

import (
	"fmt"
	"net/netip"
	"strings"
)

// IsValidIPv4 checks if a string is a valid IPv4 address
func IsValidIPv4(ipStr string) bool {
	addr, err := netip.ParseAddr(ipStr)
	return err == nil && addr.Is4()
}

// NormalizeIPv4 trims surrounding whitespace and brackets and returns the
// dotted-decimal form. Leading zeros are rejected rather than reinterpreted.
func NormalizeIPv4(ipStr string) (string, error) {
	s := strings.Trim(strings.TrimSpace(ipStr), "()[]")
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidTarget, ipStr)
	}
	return addr.String(), nil
}

// IsUnspecifiedIPv4 reports whether s is 0.0.0.0, which some devices print
// in place of a missing management address.
func IsUnspecifiedIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4() && addr.IsUnspecified()
}
