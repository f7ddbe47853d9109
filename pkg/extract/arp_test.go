package extract

import "testing"

const iosARP = `Protocol  Address          Age (min)  Hardware Addr   Type   Interface
Internet  10.0.0.1                -   aabb.cc00.0100  ARPA   Vlan10
Internet  10.0.0.5                -   0011.2233.4455  ARPA   Vlan10
Internet  10.0.0.50              12   0011.2233.9999  ARPA   Vlan10
Internet  10.0.0.77               0   Incomplete      ARPA
`

const nxosARP = `IP ARP Table for context default
Total number of entries: 2
Address         Age       MAC Address     Interface       Flags
10.1.1.9        00:03:11  5254.0012.3456  Vlan20
10.1.1.10       00:00:42  5254.00ab.cdef  Vlan20
`

const hostARP = `? (192.168.1.20) at 00:1a:2b:3c:4d:5e [ether] on eth0
? (192.168.1.21) at <incomplete> on eth0
`

func TestHardwareAddrForIP(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		ip     string
		want   string
		wantOK bool
	}{
		{"ios row", "Internet  10.0.0.5   -   0011.2233.4455  ARPA   Vlan10", "10.0.0.5", "00:11:22:33:44:55", true},
		{"ios table", iosARP, "10.0.0.5", "00:11:22:33:44:55", true},
		{"no prefix match", iosARP, "10.0.0.", "", false},
		{"longer address not confused", iosARP, "10.0.0.50", "00:11:22:33:99:99", true},
		{"incomplete entry", iosARP, "10.0.0.77", "", false},
		{"missing", iosARP, "10.9.9.9", "", false},
		{"nxos", nxosARP, "10.1.1.10", "52:54:00:ab:cd:ef", true},
		{"arp -a", hostARP, "192.168.1.20", "00:1a:2b:3c:4d:5e", true},
		{"arp -a incomplete", hostARP, "192.168.1.21", "", false},
		{"empty output", "", "10.0.0.5", "", false},
		{"empty ip", iosARP, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := HardwareAddrForIP(tt.raw, tt.ip)
			if ok != tt.wantOK {
				t.Fatalf("HardwareAddrForIP(%q) ok = %v, want %v", tt.ip, ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Errorf("HardwareAddrForIP(%q) = %q, want %q", tt.ip, got.String(), tt.want)
			}
		})
	}
}
