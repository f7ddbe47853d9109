// Package dialect holds the per-firmware command templates used to query a
// switch during a trace.
//
// A template may reference the placeholders {ip}, {mac}, {mac_dotted} and
// {port}; Expand substitutes them before the command is sent.
package dialect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/switchtrace/switchtrace/pkg/util"
)

// Commands is the set of CLI commands a device answers during a trace.
type Commands struct {
	// ARP resolves the target IP to a hardware address.
	ARP string `yaml:"arp" json:"arp"`

	// ForwardingTable looks up the port a hardware address was learned on.
	ForwardingTable string `yaml:"forwarding_table" json:"forwarding_table"`

	// NeighborDetail lists the discovery-protocol neighbor on a port.
	NeighborDetail string `yaml:"neighbor_detail" json:"neighbor_detail"`

	Hostname  string `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	Inventory string `yaml:"inventory,omitempty" json:"inventory,omitempty"`

	// Setup runs once after a session is opened (pager off, etc.).
	Setup []string `yaml:"setup,omitempty" json:"setup,omitempty"`
}

// Vars carries the values substituted into a command template.
type Vars struct {
	IP        string
	MAC       string // canonical colon form
	MACDotted string // 0011.2233.4455
	Port      string
}

// Default dialect name.
const Default = "cisco_ios"

var builtin = map[string]Commands{
	"cisco_ios": {
		ARP:             "show ip arp {ip}",
		ForwardingTable: "show mac address-table address {mac_dotted}",
		NeighborDetail:  "show cdp neighbors {port} detail",
		Hostname:        "show running-config | include ^hostname",
		Inventory:       "show inventory",
		Setup:           []string{"terminal length 0"},
	},
	"cisco_nxos": {
		ARP:             "show ip arp {ip}",
		ForwardingTable: "show mac address-table address {mac_dotted}",
		NeighborDetail:  "show cdp neighbors interface {port} detail",
		Hostname:        "show hostname",
		Inventory:       "show inventory chassis",
		Setup:           []string{"terminal length 0"},
	},
	"arista_eos": {
		ARP:             "show ip arp {ip}",
		ForwardingTable: "show mac address-table address {mac_dotted}",
		NeighborDetail:  "show lldp neighbors {port} detail",
		Hostname:        "show hostname",
		Inventory:       "show version",
		Setup:           []string{"terminal length 0"},
	},
}

// Lookup returns the built-in dialect with the given name.
func Lookup(name string) (Commands, bool) {
	c, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Commands{}, false
	}
	c.Setup = append([]string(nil), c.Setup...)
	return c, true
}

// Names returns the built-in dialect names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge returns base with every non-empty field of override applied.
func Merge(base, override Commands) Commands {
	out := base
	if override.ARP != "" {
		out.ARP = override.ARP
	}
	if override.ForwardingTable != "" {
		out.ForwardingTable = override.ForwardingTable
	}
	if override.NeighborDetail != "" {
		out.NeighborDetail = override.NeighborDetail
	}
	if override.Hostname != "" {
		out.Hostname = override.Hostname
	}
	if override.Inventory != "" {
		out.Inventory = override.Inventory
	}
	if override.Setup != nil {
		out.Setup = append([]string(nil), override.Setup...)
	}
	return out
}

// Validate checks that the three commands a trace needs are present and that
// each references the placeholder it depends on.
func (c Commands) Validate() error {
	v := &util.ValidationBuilder{}
	v.Add(c.ARP != "", "arp command is required")
	v.Add(c.ForwardingTable != "", "forwarding_table command is required")
	v.Add(c.NeighborDetail != "", "neighbor_detail command is required")
	if c.ForwardingTable != "" {
		v.Add(strings.Contains(c.ForwardingTable, "{mac}") || strings.Contains(c.ForwardingTable, "{mac_dotted}"),
			fmt.Sprintf("forwarding_table command %q must reference {mac} or {mac_dotted}", c.ForwardingTable))
	}
	return v.Build()
}

// Expand substitutes vars into tmpl.
func Expand(tmpl string, vars Vars) string {
	r := strings.NewReplacer(
		"{ip}", vars.IP,
		"{mac_dotted}", vars.MACDotted,
		"{mac}", vars.MAC,
		"{port}", vars.Port,
	)
	return strings.TrimSpace(r.Replace(tmpl))
}
