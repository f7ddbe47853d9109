package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/switchtrace/switchtrace/pkg/util"
)

// serialPort is the subset of serial.Port a console session needs.
type serialPort interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
}

var openPort = func(name string, mode *serial.Mode) (serialPort, error) {
	return serial.Open(name, mode)
}

const (
	// DefaultIdleGap ends a response once the console has been quiet this long.
	DefaultIdleGap = 500 * time.Millisecond

	// DefaultFirstByteWait bounds how long Send waits for any output at all.
	DefaultFirstByteWait = 6 * time.Second
)

// SerialSession drives an interactive console over a serial line. Commands
// are written one at a time and the response is everything read until the
// line goes idle.
type SerialSession struct {
	device string
	port   serialPort

	idleGap       time.Duration
	firstByteWait time.Duration

	mu     sync.Mutex
	closed bool
}

// OpenSerial opens the console port named in target and runs its setup
// commands.
func OpenSerial(ctx context.Context, target Target) (*SerialSession, error) {
	if target.SerialDevice == "" {
		return nil, util.NewConnectionError(target.Name, fmt.Errorf("no serial device configured"))
	}
	baud := target.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	port, err := openPort(target.SerialDevice, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, util.NewConnectionError(target.Name, fmt.Errorf("opening %s: %w", target.SerialDevice, err))
	}

	s := newSerialSession(target.Name, port)
	if err := s.setup(ctx, target.Setup); err != nil {
		port.Close()
		return nil, util.NewConnectionError(target.Name, err)
	}

	util.WithDevice(target.Name).Debugf("console opened on %s at %d baud", target.SerialDevice, baud)
	return s, nil
}

func newSerialSession(device string, port serialPort) *SerialSession {
	return &SerialSession{
		device:        device,
		port:          port,
		idleGap:       DefaultIdleGap,
		firstByteWait: DefaultFirstByteWait,
	}
}

// setup wakes the console with an empty line and sends each setup command,
// discarding the output.
func (s *SerialSession) setup(ctx context.Context, commands []string) error {
	for _, cmd := range append([]string{""}, commands...) {
		if _, err := s.Send(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// Device returns the device identity.
func (s *SerialSession) Device() string {
	return s.device
}

// Send writes cmd followed by CR LF and returns the response with the
// echoed command line removed.
func (s *SerialSession) Send(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", util.NewCommandError(s.device, cmd, fmt.Errorf("session closed"))
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return "", util.NewCommandError(s.device, cmd, err)
	}
	if _, err := s.port.Write([]byte(cmd + "\r\n")); err != nil {
		return "", util.NewCommandError(s.device, cmd, err)
	}

	out, err := s.readUntilIdle(ctx)
	if err != nil {
		return out, util.NewCommandError(s.device, cmd, err)
	}
	return stripEcho(out, cmd), nil
}

func (s *SerialSession) readUntilIdle(ctx context.Context) (string, error) {
	if err := s.port.SetReadTimeout(s.idleGap); err != nil {
		return "", err
	}

	var out bytes.Buffer
	buf := make([]byte, 4096)
	deadline := time.Now().Add(s.firstByteWait)
	for {
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		n, err := s.port.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
			continue
		}
		if err != nil {
			return out.String(), err
		}
		// Read timed out with nothing new.
		if out.Len() > 0 || time.Now().After(deadline) {
			return out.String(), nil
		}
	}
}

// stripEcho normalizes line endings and drops the console's echo of cmd,
// which may be preceded by a prompt ("R1#show ip arp").
func stripEcho(out, cmd string) string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "")

	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return out
	}
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasSuffix(strings.TrimSpace(line), cmd) {
			return strings.Join(lines[i+1:], "\n")
		}
		break
	}
	return out
}

// Close closes the port. It is safe to call more than once.
func (s *SerialSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

// ListSerialPorts returns the serial ports present on this host.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
