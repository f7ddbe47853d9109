package extract

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// HardwareAddr is a 48-bit link-layer address. The zero value is the
// all-zero address, which never appears in a forwarding table and is used
// as "unset".
type HardwareAddr [6]byte

var hwAddrFormats = []*regexp.Regexp{
	regexp.MustCompile(`^[0-9A-Fa-f]{4}\.[0-9A-Fa-f]{4}\.[0-9A-Fa-f]{4}$`), // 0011.2233.4455
	regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`),             // 00:11:22:33:44:55
	regexp.MustCompile(`^[0-9A-Fa-f]{2}(-[0-9A-Fa-f]{2}){5}$`),             // 00-11-22-33-44-55
	regexp.MustCompile(`^[0-9A-Fa-f]{12}$`),                                // 001122334455
}

// ParseHardwareAddr parses a hardware address written with dot, colon, dash
// or no separators. Mixed separators are rejected.
func ParseHardwareAddr(s string) (HardwareAddr, error) {
	var hw HardwareAddr
	s = strings.TrimSpace(s)

	matched := false
	for _, re := range hwAddrFormats {
		if re.MatchString(s) {
			matched = true
			break
		}
	}
	if !matched {
		return hw, fmt.Errorf("invalid hardware address %q", s)
	}

	digits := strings.NewReplacer(".", "", ":", "", "-", "").Replace(s)
	if _, err := hex.Decode(hw[:], []byte(digits)); err != nil {
		return hw, fmt.Errorf("invalid hardware address %q: %w", s, err)
	}
	return hw, nil
}

// Canonicalize returns the canonical lowercase colon form of s.
// Canonicalize(Canonicalize(s)) == Canonicalize(s) for every valid s.
func Canonicalize(s string) (string, error) {
	hw, err := ParseHardwareAddr(s)
	if err != nil {
		return "", err
	}
	return hw.String(), nil
}

// String returns the canonical form, e.g. "00:11:22:33:44:55".
func (hw HardwareAddr) String() string {
	var b strings.Builder
	b.Grow(17)
	for i, octet := range hw {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%02x", octet)
	}
	return b.String()
}

// Dotted returns the three-group form used by Cisco CLIs, e.g. "0011.2233.4455".
func (hw HardwareAddr) Dotted() string {
	h := hex.EncodeToString(hw[:])
	return h[0:4] + "." + h[4:8] + "." + h[8:12]
}

// IsZero reports whether hw is unset.
func (hw HardwareAddr) IsZero() bool {
	return hw == HardwareAddr{}
}

// MarshalText encodes hw in canonical form; the zero address encodes as "".
func (hw HardwareAddr) MarshalText() ([]byte, error) {
	if hw.IsZero() {
		return []byte{}, nil
	}
	return []byte(hw.String()), nil
}

// UnmarshalText accepts any form ParseHardwareAddr does, and "" for unset.
func (hw *HardwareAddr) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*hw = HardwareAddr{}
		return nil
	}
	parsed, err := ParseHardwareAddr(string(text))
	if err != nil {
		return err
	}
	*hw = parsed
	return nil
}
