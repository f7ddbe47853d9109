// Package history stores completed trace results so they can be listed
// later from the CLI or the HTTP API.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/switchtrace/switchtrace/pkg/trace"
)

// Record is one stored trace.
type Record struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	User      string       `json:"user,omitempty"`
	Source    string       `json:"source,omitempty"` // "cli" or "api"
	Result    trace.Result `json:"result"`
}

// NewRecord wraps res in a record with a fresh ID.
func NewRecord(user, source string, res *trace.Result) *Record {
	return &Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		User:      user,
		Source:    source,
		Result:    *res,
	}
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	Target    string
	Device    string // root or any hop device
	Status    trace.Status
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Match reports whether r passes every criterion in f.
func (f Filter) Match(r *Record) bool {
	if f.Target != "" && r.Result.Target != f.Target {
		return false
	}
	if f.Status != "" && r.Result.Status != f.Status {
		return false
	}
	if f.Device != "" && !touches(r, f.Device) {
		return false
	}
	if !f.StartTime.IsZero() && r.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && r.Timestamp.After(f.EndTime) {
		return false
	}
	return true
}

func touches(r *Record, device string) bool {
	if r.Result.Root == device {
		return true
	}
	for _, hop := range r.Result.Path {
		if hop.Device == device || hop.Hostname == device {
			return true
		}
	}
	return false
}

// page applies Offset and Limit.
func (f Filter) page(records []*Record) []*Record {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return nil
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}
