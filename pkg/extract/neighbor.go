package extract

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/switchtrace/switchtrace/pkg/util"
)

const ipv4Pattern = `(\d{1,3}(?:\.\d{1,3}){3})`

// neighborIPLabels are tried in order; firmware families label the
// management address differently.
var neighborIPLabels = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bIP(?:v4)? address:\s*` + ipv4Pattern),
	regexp.MustCompile(`(?i)\bIP(?:v4)?:\s*` + ipv4Pattern),
	regexp.MustCompile(`(?i)\bManagement address(?:es)?\s*:\s*` + ipv4Pattern),
}

// neighborPortLabels name the local port a neighbor block belongs to.
var neighborPortLabels = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*Interface:\s*([^,\s]+)`),
	regexp.MustCompile(`(?i)^\s*Local Intf:\s*(\S+)`),
	regexp.MustCompile(`(?i)^\s*Local Port id:\s*(\S+)`),
	regexp.MustCompile(`(?i)^\s*Local Interface\s*:\s*(\S+)`),
	regexp.MustCompile(`(?i)^\s*Interface\s+(\S+)\s+detected\b`),
}

var blockSeparator = regexp.MustCompile(`^\s*-{5,}\s*$`)

// NeighborIPForPort scans a neighbor-discovery detail dump (CDP or LLDP) for
// the management address of the peer attached to port.
//
// Output is split into per-neighbor blocks on dashed separator lines. A block
// that names its local port is only considered when that port matches port
// (Gi0/1 and GigabitEthernet0/1 match). Blocks without a port label are
// accepted as-is, which covers output already scoped to one port. An empty
// port accepts every block.
func NeighborIPForPort(raw, port string) (string, bool) {
	for _, block := range splitNeighborBlocks(raw) {
		if local, ok := blockPort(block); ok && port != "" && !util.SameInterface(local, port) {
			continue
		}
		if ip, ok := blockManagementIP(block); ok {
			return ip, true
		}
	}
	return "", false
}

func splitNeighborBlocks(raw string) []string {
	var blocks []string
	var cur strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if blockSeparator.MatchString(line) {
			if strings.TrimSpace(cur.String()) != "" {
				blocks = append(blocks, cur.String())
			}
			cur.Reset()
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	if strings.TrimSpace(cur.String()) != "" {
		blocks = append(blocks, cur.String())
	}
	return blocks
}

func blockPort(block string) (string, bool) {
	for _, line := range strings.Split(block, "\n") {
		for _, re := range neighborPortLabels {
			if m := re.FindStringSubmatch(line); m != nil {
				return m[1], true
			}
		}
	}
	return "", false
}

func blockManagementIP(block string) (string, bool) {
	for _, re := range neighborIPLabels {
		for _, m := range re.FindAllStringSubmatch(block, -1) {
			ip := m[1]
			if util.IsValidIPv4(ip) && !util.IsUnspecifiedIPv4(ip) {
				return ip, true
			}
		}
	}
	return "", false
}
