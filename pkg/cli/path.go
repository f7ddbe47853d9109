package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/switchtrace/switchtrace/pkg/trace"
)

// PrintPath writes a one-line summary of res followed by its hop table.
func PrintPath(w io.Writer, res *trace.Result) {
	fmt.Fprintf(w, "%s %s from %s: %s (%d hops, %s)\n",
		Bold("Trace"), res.Target, res.Root, StatusColor(res.Status),
		len(res.Path), res.Duration.Round(time.Millisecond))
	if res.Error != "" {
		fmt.Fprintf(w, "  %s\n", Dim(res.Error))
	}

	t := NewTableTo(w, "HOP", "DEVICE", "HOSTNAME", "PORT", "VLAN", "HARDWARE ADDRESS", "OUTCOME")
	t.WithPrefix("  ")
	for i, hop := range res.Path {
		t.Row(strconv.Itoa(i+1), hop.Device, dash(hop.Hostname), dash(hop.Port),
			vlan(hop.VLAN), hwaddr(hop), outcome(hop))
	}
	t.Flush()

	if end, ok := res.Endpoint(); ok {
		fmt.Fprintf(w, "%s is on %s port %s\n", res.Target, deviceName(end), end.Port)
	}
}

// CSVHeader is the header row written by WritePathCSV.
var CSVHeader = []string{
	"target", "root", "status", "hop", "device", "hostname",
	"port", "vlan", "hardware_address", "outcome", "next_device",
}

// WritePathCSV writes one row per hop of every result. A result with no hops
// still gets one row carrying its status.
func WritePathCSV(w io.Writer, results []*trace.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		if len(res.Path) == 0 {
			row := []string{res.Target, res.Root, string(res.Status), "", "", "", "", "", "", "", ""}
			if err := cw.Write(row); err != nil {
				return err
			}
			continue
		}
		for i, hop := range res.Path {
			addr := ""
			if !hop.HardwareAddr.IsZero() {
				addr = hop.HardwareAddr.String()
			}
			vl := ""
			if hop.VLAN > 0 {
				vl = strconv.Itoa(hop.VLAN)
			}
			row := []string{
				res.Target, res.Root, string(res.Status), strconv.Itoa(i + 1),
				hop.Device, hop.Hostname, hop.Port, vl, addr,
				string(hop.Outcome), hop.NextDevice,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deviceName(hop trace.Hop) string {
	if hop.Hostname != "" {
		return hop.Hostname
	}
	return hop.Device
}

func outcome(hop trace.Hop) string {
	label := Label(string(hop.Outcome))
	if hop.Outcome == trace.OutcomeForwarded && hop.NextDevice != "" {
		return label + " to " + hop.NextDevice
	}
	return label
}

func hwaddr(hop trace.Hop) string {
	if hop.HardwareAddr.IsZero() {
		return "-"
	}
	return hop.HardwareAddr.String()
}

func vlan(v int) string {
	if v <= 0 {
		return "-"
	}
	return strconv.Itoa(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
