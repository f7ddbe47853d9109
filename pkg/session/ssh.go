package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/switchtrace/switchtrace/pkg/util"
)

// SSHSession runs each command on its own exec channel over a single SSH
// connection. Channels are stateless, so no pager setup is needed.
type SSHSession struct {
	device string
	client *ssh.Client

	mu     sync.Mutex
	closed bool
}

// DialSSH connects to target over SSH. The dial and handshake are bounded
// by ctx.
func DialSSH(ctx context.Context, target Target) (*SSHSession, error) {
	config, err := sshClientConfig(target)
	if err != nil {
		return nil, util.NewConnectionError(target.Name, err)
	}

	port := target.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	addr := net.JoinHostPort(target.Address, strconv.Itoa(port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, util.NewConnectionError(target.Name, fmt.Errorf("SSH dial %s: %w", addr, err))
	}

	// ssh.NewClientConn has no context; closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if !stop() {
		if err == nil {
			c.Close()
		}
		return nil, util.NewConnectionError(target.Name, fmt.Errorf("SSH handshake %s: %w", addr, ctx.Err()))
	}
	if err != nil {
		conn.Close()
		return nil, util.NewConnectionError(target.Name, fmt.Errorf("SSH handshake %s: %w", addr, err))
	}

	util.WithDevice(target.Name).Debugf("SSH connected to %s as %s", addr, target.Username)

	return &SSHSession{
		device: target.Name,
		client: ssh.NewClient(c, chans, reqs),
	}, nil
}

func sshClientConfig(target Target) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if target.KeyFile != "" {
		key, err := os.ReadFile(target.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing key file %s: %w", target.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if target.Password != "" {
		pass := target.Password
		auth = append(auth,
			ssh.Password(pass),
			// Many switch firmwares only offer keyboard-interactive.
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = pass
				}
				return answers, nil
			}),
		)
	}
	if len(auth) == 0 {
		return nil, errors.New("no password or key file configured")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if target.KnownHosts != "" {
		cb, err := knownhosts.New(target.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("loading known_hosts: %w", err)
		}
		hostKey = cb
	} else {
		util.WithDevice(target.Name).Warnf("host key verification disabled (no known_hosts configured)")
	}

	return &ssh.ClientConfig{
		User:            target.Username,
		Auth:            auth,
		HostKeyCallback: hostKey,
	}, nil
}

// Device returns the device identity.
func (s *SSHSession) Device() string {
	return s.device
}

// Send runs cmd on a new exec channel and returns its combined output.
//
// A non-zero or missing exit status is not an error: switch CLIs report
// "no match" that way and the printed text is still the answer.
func (s *SSHSession) Send(ctx context.Context, cmd string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", util.NewCommandError(s.device, cmd, fmt.Errorf("SSH session: %w", err))
	}
	defer sess.Close()

	// x/crypto/ssh copies stdout and stderr on separate goroutines.
	var outputBuf syncBuffer
	sess.Stdout = &outputBuf
	sess.Stderr = &outputBuf

	if err := sess.Start(cmd); err != nil {
		return "", util.NewCommandError(s.device, cmd, fmt.Errorf("SSH start: %w", err))
	}

	done := make(chan error, 1)
	go func() {
		done <- sess.Wait()
	}()

	select {
	case <-ctx.Done():
		sess.Signal(ssh.SIGKILL)
		sess.Close()
		<-done
		return outputBuf.String(), util.NewCommandError(s.device, cmd, ctx.Err())
	case err := <-done:
		var exitErr *ssh.ExitError
		var missingErr *ssh.ExitMissingError
		if err != nil && !errors.As(err, &exitErr) && !errors.As(err, &missingErr) {
			return outputBuf.String(), util.NewCommandError(s.device, cmd, err)
		}
		return outputBuf.String(), nil
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Close closes the SSH connection. It is safe to call more than once.
func (s *SSHSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	util.WithDevice(s.device).Debugf("SSH disconnected")
	return s.client.Close()
}
