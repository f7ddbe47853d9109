// Package session provides the transports used to run CLI commands on a
// switch: SSH exec channels and a serial console.
//
// The tracer depends only on the Session and Dialer interfaces. Open
// failures are reported as *util.ConnectionError and command failures as
// *util.CommandError, so callers can branch with errors.Is on
// util.ErrConnectionFailed and util.ErrTimeout.
package session

import (
	"context"
	"time"
)

// Session is an open connection to one device.
type Session interface {
	// Device returns the identity the session was opened for.
	Device() string

	// Send runs command and returns everything the device printed for it.
	// Empty output is not an error.
	Send(ctx context.Context, command string) (string, error)

	Close() error
}

// Dialer opens sessions by device identity (name, alias or address).
type Dialer interface {
	Open(ctx context.Context, device string) (Session, error)
}

// AttemptTimer is implemented by dialers that bound every connection
// attempt on their own, retries included. Callers should not wrap Open in a
// connect deadline of their own or a hung first attempt leaves no time for
// the retries.
type AttemptTimer interface {
	AttemptTimeout() time.Duration
}

// Transport selects how a device is reached.
type Transport string

const (
	TransportSSH    Transport = "ssh"
	TransportSerial Transport = "serial"
)

// Target is everything needed to open a session to one device.
type Target struct {
	Name      string
	Address   string
	Port      int
	Transport Transport

	Username   string
	Password   string
	KeyFile    string
	KnownHosts string

	SerialDevice string
	BaudRate     int

	// Setup commands are sent once after an interactive (serial) session
	// opens. SSH exec channels are not paged and skip them.
	Setup []string
}

// TargetResolver maps a device identity to connection parameters.
type TargetResolver interface {
	Target(device string) (Target, error)
}

const (
	DefaultSSHPort  = 22
	DefaultBaudRate = 9600

	DefaultConnectTimeout = 15 * time.Second
)
