package util

import (
	"errors"
	"testing"
)

func TestIsValidIPv4(t *testing.T) {
	tests := []struct {
		name  string
		ipStr string
		want  bool
	}{
		{"valid IP", "192.168.1.1", true},
		{"valid loopback", "127.0.0.1", true},
		{"valid zero", "0.0.0.0", true},
		{"valid broadcast", "255.255.255.255", true},
		{"invalid - out of range", "256.1.1.1", false},
		{"invalid - text", "invalid", false},
		{"invalid - empty", "", false},
		{"invalid - IPv6", "::1", false},
		{"invalid - partial", "192.168.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidIPv4(tt.ipStr)
			if got != tt.want {
				t.Errorf("IsValidIPv4(%q) = %v, want %v", tt.ipStr, got, tt.want)
			}
		})
	}
}

func TestNormalizeIPv4(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"10.0.0.5", "10.0.0.5", false},
		{"  10.0.0.5\n", "10.0.0.5", false},
		{"(10.0.0.5)", "10.0.0.5", false},
		{"010.0.0.5", "", true},
		{"fe80::1", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeIPv4(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeIPv4(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTarget) {
				t.Errorf("error should wrap ErrInvalidTarget: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeIPv4(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsUnspecifiedIPv4(t *testing.T) {
	if !IsUnspecifiedIPv4("0.0.0.0") {
		t.Error("0.0.0.0 should be unspecified")
	}
	if IsUnspecifiedIPv4("10.0.0.1") {
		t.Error("10.0.0.1 should not be unspecified")
	}
}
