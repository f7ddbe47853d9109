package extract

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ForwardingEntry is one forwarding-table row: the port a hardware address
// was last seen on, in a VLAN.
type ForwardingEntry struct {
	HardwareAddr HardwareAddr `json:"hardware_address"`
	VLAN         int          `json:"vlan"`
	Type         string       `json:"type,omitempty"`
	Port         string       `json:"port"`
}

// strictFDBRow matches the fixed-column layout of "show mac address-table":
//
//	10    0011.2233.4455    DYNAMIC     Gi0/1
var strictFDBRow = regexp.MustCompile(
	`^\s{0,4}\*?\s*(\d{1,4})\s{4}([0-9A-Fa-f]{4}\.[0-9A-Fa-f]{4}\.[0-9A-Fa-f]{4})\s{4}(\S+)\s{2,}(\S+)\s*$`)

// ForwardingEntryFor scans a forwarding-table dump for the row whose address
// equals hw. Addresses are compared as parsed octets, never as substrings.
//
// Each line is parsed with the strict column layout first; when that does
// not match, a permissive whitespace split (VLAN, address, type, port) is
// tried so that older or differently padded output still resolves.
func ForwardingEntryFor(raw string, hw HardwareAddr) (ForwardingEntry, bool) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()

		entry, ok := parseStrictFDBRow(line)
		if !ok {
			entry, ok = parsePermissiveFDBRow(line)
		}
		if ok && entry.HardwareAddr == hw {
			return entry, true
		}
	}
	return ForwardingEntry{}, false
}

func parseStrictFDBRow(line string) (ForwardingEntry, bool) {
	m := strictFDBRow.FindStringSubmatch(line)
	if m == nil {
		return ForwardingEntry{}, false
	}
	vlan, err := strconv.Atoi(m[1])
	if err != nil {
		return ForwardingEntry{}, false
	}
	hw, err := ParseHardwareAddr(m[2])
	if err != nil {
		return ForwardingEntry{}, false
	}
	return ForwardingEntry{HardwareAddr: hw, VLAN: vlan, Type: m[3], Port: m[4]}, true
}

// parsePermissiveFDBRow splits on whitespace. Rows carrying extra columns
// (NX-OS age/secure/ntfy, EOS moves/last-move) keep the port in the first
// column after the type that looks like a port name.
func parsePermissiveFDBRow(line string) (ForwardingEntry, bool) {
	fields := strings.Fields(line)
	for len(fields) > 0 && strings.Trim(fields[0], "*+") == "" {
		fields = fields[1:]
	}
	if len(fields) < 4 {
		return ForwardingEntry{}, false
	}

	vlan, err := strconv.Atoi(strings.TrimLeft(fields[0], "*+"))
	if err != nil || vlan < 0 {
		return ForwardingEntry{}, false
	}
	hw, err := ParseHardwareAddr(fields[1])
	if err != nil {
		return ForwardingEntry{}, false
	}

	port := fields[3]
	for _, f := range fields[3:] {
		if looksLikePort(f) {
			port = f
			break
		}
	}
	return ForwardingEntry{HardwareAddr: hw, VLAN: vlan, Type: fields[2], Port: port}, true
}

// looksLikePort reports whether f starts with a letter and contains a digit.
func looksLikePort(f string) bool {
	if f == "" || !unicode.IsLetter(rune(f[0])) {
		return false
	}
	return strings.IndexFunc(f, unicode.IsDigit) >= 0
}
