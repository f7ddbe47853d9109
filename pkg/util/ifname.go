package util

import (
	"regexp"
	"sort"
	"strings"
)

var parseInterfaceRegexp = regexp.MustCompile(`^([A-Za-z][A-Za-z-]*?)\s*(\d[\d/.:]*)$`)

// ParseInterfaceName splits a device port name into its type and number
// parts, e.g. ("Gi", "1/0/24") for Gi1/0/24. Names that do not look like a
// port are returned whole as the type.
func ParseInterfaceName(name string) (ifType string, num string) {
	matches := parseInterfaceRegexp.FindStringSubmatch(strings.TrimSpace(name))
	if len(matches) == 3 {
		return matches[1], matches[2]
	}
	return strings.TrimSpace(name), ""
}

// Interface type mappings (long <-> short)
var (
	// longToShort maps full interface type names to the abbreviation that
	// forwarding tables print.
	longToShort = map[string]string{
		"FastEthernet":         "Fa",
		"GigabitEthernet":      "Gi",
		"TwoGigabitEthernet":   "Tw",
		"FiveGigabitEthernet":  "Fi",
		"TenGigabitEthernet":   "Te",
		"TwentyFiveGigE":       "Twe",
		"FortyGigabitEthernet": "Fo",
		"HundredGigE":          "Hu",
		"Ethernet":             "Eth",
		"Port-channel":         "Po",
		"Vlan":                 "Vl",
		"Loopback":             "Lo",
		"Management":           "Mgmt",
	}

	// shortToLong maps lowercase abbreviations to full interface type names.
	// Abbreviations not listed here are resolved by unique prefix.
	shortToLong = map[string]string{
		"fa":   "FastEthernet",
		"gi":   "GigabitEthernet",
		"gig":  "GigabitEthernet",
		"tw":   "TwoGigabitEthernet",
		"fi":   "FiveGigabitEthernet",
		"te":   "TenGigabitEthernet",
		"ten":  "TenGigabitEthernet",
		"twe":  "TwentyFiveGigE",
		"fo":   "FortyGigabitEthernet",
		"hu":   "HundredGigE",
		"et":   "Ethernet",
		"eth":  "Ethernet",
		"po":   "Port-channel",
		"vl":   "Vlan",
		"lo":   "Loopback",
		"mgmt": "Management",
		"ma":   "Management",
	}

	// longNamesSorted holds the long type names, sorted for stable prefix search.
	longNamesSorted []string
)

func init() {
	longNamesSorted = make([]string, 0, len(longToShort))
	for k := range longToShort {
		longNamesSorted = append(longNamesSorted, k)
	}
	sort.Strings(longNamesSorted)
}

// expandInterfaceType returns the long type name for an abbreviation or
// any unambiguous prefix of a long name.
func expandInterfaceType(ifType string) (string, bool) {
	lower := strings.ToLower(ifType)
	if long, ok := shortToLong[lower]; ok {
		return long, true
	}

	var match string
	for _, long := range longNamesSorted {
		if strings.HasPrefix(strings.ToLower(long), lower) {
			if match != "" {
				return "", false
			}
			match = long
		}
	}
	return match, match != ""
}

// NormalizeInterfaceName expands an abbreviated port name to its long form:
// Gi0/1 -> GigabitEthernet0/1, po10 -> Port-channel10, Et1 -> Ethernet1.
func NormalizeInterfaceName(name string) string {
	ifType, num := ParseInterfaceName(name)
	if num == "" {
		return strings.TrimSpace(name)
	}
	if long, ok := expandInterfaceType(ifType); ok {
		return long + num
	}
	return ifType + num
}

// ShortenInterfaceName converts a port name to its abbreviated form
// GigabitEthernet0/1 -> Gi0/1, Port-channel10 -> Po10
func ShortenInterfaceName(name string) string {
	long := NormalizeInterfaceName(name)
	ifType, num := ParseInterfaceName(long)
	if short, ok := longToShort[ifType]; ok && num != "" {
		return short + num
	}
	return long
}

// SameInterface reports whether two port names refer to the same port,
// regardless of abbreviation or case.
func SameInterface(a, b string) bool {
	return strings.EqualFold(NormalizeInterfaceName(a), NormalizeInterfaceName(b))
}
