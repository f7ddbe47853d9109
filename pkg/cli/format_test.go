package cli

import (
	"strings"
	"testing"

	"github.com/switchtrace/switchtrace/pkg/trace"
)

func TestDotPad(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"normal case", "hostname", 20, "hostname " + strings.Repeat(".", 11)},
		{"short name", "ok", 10, "ok " + strings.Repeat(".", 7)},
		{"name equals width minus one", "abcde", 6, "abcde"},
		{"name equals width", "abcdef", 6, "abcdef"},
		{"name longer than width", "serial-number", 5, "serial-number"},
		{"zero width", "x", 0, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DotPad(tt.input, tt.width); got != tt.expected {
				t.Errorf("DotPad(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.expected)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"success", "Success"},
		{"loop_detected", "Loop Detected"},
		{"connection_failed", "Connection Failed"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func withColor(t *testing.T, enabled bool) {
	t.Helper()
	prev := colorEnabled
	colorEnabled = enabled
	t.Cleanup(func() { colorEnabled = prev })
}

func TestStatusColor(t *testing.T) {
	withColor(t, true)

	tests := []struct {
		status trace.Status
		prefix string
	}{
		{trace.StatusSuccess, "\033[32m"},
		{trace.StatusNotFound, "\033[33m"},
		{trace.StatusHopLimit, "\033[33m"},
		{trace.StatusLoopDetected, "\033[31m"},
		{trace.StatusConnectionFailed, "\033[31m"},
	}
	for _, tt := range tests {
		got := StatusColor(tt.status)
		if !strings.HasPrefix(got, tt.prefix) {
			t.Errorf("StatusColor(%s) = %q, want prefix %q", tt.status, got, tt.prefix)
		}
	}
}

func TestColorFunctions(t *testing.T) {
	withColor(t, true)

	tests := []struct {
		name   string
		fn     func(string) string
		prefix string
	}{
		{"Green", Green, "\033[32m"},
		{"Yellow", Yellow, "\033[33m"},
		{"Red", Red, "\033[31m"},
		{"Bold", Bold, "\033[1m"},
		{"Dim", Dim, "\033[2m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("hello")
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("%s should start with %q", tt.name, tt.prefix)
			}
			if !strings.HasSuffix(got, "\033[0m") {
				t.Errorf("%s should end with reset code", tt.name)
			}
		})
	}
}

func TestColorDisabled(t *testing.T) {
	withColor(t, false)
	for _, fn := range []func(string) string{Green, Yellow, Red, Bold, Dim} {
		if got := fn("plain"); got != "plain" {
			t.Errorf("got %q with color disabled", got)
		}
	}
}
