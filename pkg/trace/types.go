package trace

import (
	"fmt"
	"time"

	"github.com/switchtrace/switchtrace/pkg/extract"
	"github.com/switchtrace/switchtrace/pkg/util"
)

// Status is how a trace ended.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusNotFound         Status = "not_found"
	StatusLoopDetected     Status = "loop_detected"
	StatusConnectionFailed Status = "connection_failed"
	StatusCanceled         Status = "canceled"
	StatusHopLimit         Status = "hop_limit"
)

// Statuses lists every Status in display order.
var Statuses = []Status{
	StatusSuccess,
	StatusNotFound,
	StatusLoopDetected,
	StatusConnectionFailed,
	StatusCanceled,
	StatusHopLimit,
}

// ParseStatus converts a status name to a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Outcome is the decision taken at one switch.
type Outcome string

const (
	// OutcomeForwarded means the port leads to another switch.
	OutcomeForwarded Outcome = "forwarded"

	// OutcomeTerminated means the endpoint is attached to the port.
	OutcomeTerminated Outcome = "terminated"

	// OutcomeNotFound means the switch knows nothing about the endpoint.
	OutcomeNotFound Outcome = "not_found"
)

// Hop is one switch visited during a trace.
type Hop struct {
	Device       string               `json:"device"`
	Hostname     string               `json:"hostname,omitempty"`
	HardwareAddr extract.HardwareAddr `json:"hardware_address"`
	VLAN         int                  `json:"vlan"`
	Port         string               `json:"port"`
	Outcome      Outcome              `json:"outcome"`

	// NextDevice is set on forwarded hops.
	NextDevice string `json:"next_device,omitempty"`

	// Target is set on the terminal hop.
	Target string `json:"target,omitempty"`
}

// Path is the ordered list of hops from the root switch.
type Path []Hop

// Last returns the final hop, if any.
func (p Path) Last() (Hop, bool) {
	if len(p) == 0 {
		return Hop{}, false
	}
	return p[len(p)-1], true
}

// Result is the outcome of one trace. It is returned for every trace that
// started, including failed ones, and carries the path built so far.
type Result struct {
	Target    string        `json:"target"`
	Root      string        `json:"root"`
	Status    Status        `json:"status"`
	Path      Path          `json:"path"`
	Visited   []string      `json:"visited"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Endpoint returns the terminal hop of a successful trace.
func (r *Result) Endpoint() (Hop, bool) {
	if r.Status != StatusSuccess {
		return Hop{}, false
	}
	return r.Path.Last()
}

// Err maps an unsuccessful status to the matching sentinel error, for
// callers that want a single error value (exit codes, HTTP status).
func (r *Result) Err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusNotFound:
		return fmt.Errorf("%s: %w", r.Target, util.ErrNotFound)
	case StatusLoopDetected:
		return fmt.Errorf("%s: %w", r.Target, util.ErrLoopDetected)
	case StatusConnectionFailed:
		return fmt.Errorf("%s: %w: %s", r.Target, util.ErrConnectionFailed, r.Error)
	default:
		return fmt.Errorf("%s: trace ended with status %s", r.Target, r.Status)
	}
}

// HopOutcome is what the Resolver learned at one switch.
type HopOutcome struct {
	Kind         Outcome
	HardwareAddr extract.HardwareAddr
	Entry        extract.ForwardingEntry
	Neighbor     string
	Hostname     string
}

// hop converts o into the Hop recorded for device.
func (o HopOutcome) hop(device, target string) Hop {
	h := Hop{
		Device:       device,
		Hostname:     o.Hostname,
		HardwareAddr: o.HardwareAddr,
		VLAN:         o.Entry.VLAN,
		Port:         o.Entry.Port,
		Outcome:      o.Kind,
	}
	switch o.Kind {
	case OutcomeForwarded:
		h.NextDevice = o.Neighbor
	case OutcomeTerminated:
		h.Target = target
	}
	return h
}
