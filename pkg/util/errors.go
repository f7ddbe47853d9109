// Package util provides logging, the error taxonomy shared by the tracer and
// its transports, and small address and interface-name helpers.
package util

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to these so callers can branch
// with errors.Is without knowing the concrete type.
var (
	ErrNotFound         = errors.New("not found")
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("command timed out")
	ErrInvalidTarget    = errors.New("invalid trace target")
	ErrLoopDetected     = errors.New("loop detected")
	ErrUnknownDevice    = errors.New("unknown device")
	ErrValidationFailed = errors.New("validation failed")
)

// ConnectionError reports that a device could not be reached or authenticated.
type ConnectionError struct {
	Device string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Device, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnectionFailed, e.Err}
}

// NewConnectionError creates a connection error for device
func NewConnectionError(device string, err error) *ConnectionError {
	return &ConnectionError{Device: device, Err: err}
}

// CommandError reports that a command could not be completed on an open
// session. A command that ran past its deadline also matches ErrTimeout.
type CommandError struct {
	Device  string
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: command %q: %v", e.Device, e.Command, e.Err)
}

func (e *CommandError) Unwrap() []error {
	errs := []error{e.Err}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		errs = append(errs, ErrTimeout)
	}
	return errs
}

// NewCommandError creates a command error
func NewCommandError(device, command string, err error) *CommandError {
	return &CommandError{Device: device, Command: command, Err: err}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
