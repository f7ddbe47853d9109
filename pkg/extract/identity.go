package extract

import "regexp"

var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bSN:\s*([A-Za-z0-9][A-Za-z0-9-]*)`),
	regexp.MustCompile(`(?i)system serial number\s*:\s*(\S+)`),
	regexp.MustCompile(`(?i)processor board id\s+(\S+)`),
	regexp.MustCompile(`(?i)serial number\s*:\s*(\S+)`),
}

// SerialNumber returns the first chassis serial number in inventory or
// version output. "show inventory" lists the chassis first, so the first SN
// wins.
func SerialNumber(raw string) (string, bool) {
	for _, re := range serialPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var hostnamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*hostname\s+(\S+)`),
	regexp.MustCompile(`(?mi)^\s*(?:system name|host ?name)\s*:\s*(\S+)`),
	regexp.MustCompile(`(?m)^([A-Za-z0-9][A-Za-z0-9._-]*)(?:\([^)]*\))?[#>]\s*$`),
}

// Hostname returns the device name from a "hostname" config line, a
// "Hostname:" label, or a trailing CLI prompt, in that order. It returns ""
// when none is present.
func Hostname(raw string) string {
	for _, re := range hostnamePatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	return ""
}
