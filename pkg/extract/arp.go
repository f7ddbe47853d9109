package extract

import (
	"bufio"
	"strings"
)

// HardwareAddrForIP scans an address-resolution table dump for the row whose
// IP column is exactly ip and returns the hardware address that follows it.
//
// Rows are matched on whole fields, so 10.0.0.5 never matches 10.0.0.50.
// Rows without a usable address (e.g. "Incomplete") are skipped. The
// following layouts are understood:
//
//	Internet  10.0.0.5   -   0011.2233.4455  ARPA   Vlan10     (IOS)
//	10.0.0.5  00:01:02  0011.2233.4455  Vlan10                 (NX-OS)
//	? (10.0.0.5) at 00:11:22:33:44:55 [ether] on eth0          (arp -a)
func HardwareAddrForIP(raw, ip string) (HardwareAddr, bool) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return HardwareAddr{}, false
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		for i, f := range fields {
			if strings.Trim(f, "()") != ip {
				continue
			}
			for _, next := range fields[i+1:] {
				if hw, err := ParseHardwareAddr(next); err == nil {
					return hw, true
				}
			}
			break
		}
	}
	return HardwareAddr{}, false
}
