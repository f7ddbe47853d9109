package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/switchtrace/switchtrace/pkg/util"
)

// TransportDialer opens SSH or serial sessions using the parameters a
// TargetResolver returns for each device. Failed opens are retried per
// Retry; an unknown device is never retried.
type TransportDialer struct {
	Targets        TargetResolver
	ConnectTimeout time.Duration
	Retry          util.RetryConfig

	// Overridable in tests.
	dialSSH    func(context.Context, Target) (Session, error)
	openSerial func(context.Context, Target) (Session, error)
}

// NewDialer creates a dialer backed by targets.
func NewDialer(targets TargetResolver, connectTimeout time.Duration, retry util.RetryConfig) *TransportDialer {
	return &TransportDialer{
		Targets:        targets,
		ConnectTimeout: connectTimeout,
		Retry:          retry,
	}
}

// Open resolves device and connects to it.
func (d *TransportDialer) Open(ctx context.Context, device string) (Session, error) {
	target, err := d.Targets.Target(device)
	if err != nil {
		return nil, util.NewConnectionError(device, err)
	}

	var sess Session
	open := func(ctx context.Context) error {
		s, err := d.openOnce(ctx, target)
		if err != nil {
			return err
		}
		sess = s
		return nil
	}

	if err := util.Retry(open, d.Retry)(ctx); err != nil {
		var connErr *util.ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, util.NewConnectionError(device, err)
	}
	return sess, nil
}

// AttemptTimeout returns the deadline given to each connection attempt.
func (d *TransportDialer) AttemptTimeout() time.Duration {
	if d.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return d.ConnectTimeout
}

func (d *TransportDialer) openOnce(ctx context.Context, target Target) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, d.AttemptTimeout())
	defer cancel()

	switch target.Transport {
	case TransportSSH, "":
		if d.dialSSH != nil {
			return d.dialSSH(ctx, target)
		}
		s, err := DialSSH(ctx, target)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TransportSerial:
		if d.openSerial != nil {
			return d.openSerial(ctx, target)
		}
		s, err := OpenSerial(ctx, target)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, util.NewConnectionError(target.Name, fmt.Errorf("unsupported transport %q", target.Transport))
	}
}
