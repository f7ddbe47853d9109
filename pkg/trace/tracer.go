package trace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/switchtrace/switchtrace/pkg/dialect"
	"github.com/switchtrace/switchtrace/pkg/extract"
	"github.com/switchtrace/switchtrace/pkg/session"
	"github.com/switchtrace/switchtrace/pkg/util"
)

const instrumentationName = "github.com/switchtrace/switchtrace/pkg/trace"

// Directory supplies per-device knowledge the tracer does not own: the
// command dialect a switch speaks and the identity used to detect revisits.
// *inventory.Inventory implements it.
type Directory interface {
	CommandsFor(device string) dialect.Commands
	Canonical(device string) string
}

type defaultDirectory struct{}

func (defaultDirectory) CommandsFor(string) dialect.Commands {
	c, _ := dialect.Lookup(dialect.Default)
	return c
}

func (defaultDirectory) Canonical(device string) string {
	return strings.ToLower(strings.TrimSpace(device))
}

// Recorder observes traces. Implementations must be safe for concurrent use.
type Recorder interface {
	TraceFinished(res *Result)
	SessionOpened(device string, err error)
	CommandFinished(device string, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) TraceFinished(*Result) {}

func (nopRecorder) SessionOpened(string, error) {}

func (nopRecorder) CommandFinished(string, time.Duration, error) {}

// Options configures a Tracer. Zero values take the defaults below.
type Options struct {
	CommandTimeout time.Duration

	// ConnectTimeout bounds Dialer.Open. It is not applied to dialers that
	// implement session.AttemptTimer.
	ConnectTimeout time.Duration

	// MaxHops caps the number of sessions one trace may open.
	MaxHops int

	CarryHardwareAddr bool
	LearnHostname     bool

	Directory      Directory
	Recorder       Recorder
	TracerProvider oteltrace.TracerProvider
}

// Defaults for Options.
const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultConnectTimeout = session.DefaultConnectTimeout
	DefaultMaxHops        = 32
)

// Tracer runs traces through a Dialer. It holds no per-trace state and is
// safe for concurrent use.
type Tracer struct {
	dialer   session.Dialer
	opts     Options
	resolver *Resolver
	otel     oteltrace.Tracer
}

// New creates a Tracer.
func New(dialer session.Dialer, opts Options) *Tracer {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.MaxHops <= 0 {
		opts.MaxHops = DefaultMaxHops
	}
	if opts.Directory == nil {
		opts.Directory = defaultDirectory{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	return &Tracer{
		dialer: dialer,
		opts:   opts,
		resolver: &Resolver{
			CommandTimeout:    opts.CommandTimeout,
			CarryHardwareAddr: opts.CarryHardwareAddr,
			LearnHostname:     opts.LearnHostname,
			Recorder:          opts.Recorder,
		},
		otel: opts.TracerProvider.Tracer(instrumentationName),
	}
}

// Trace follows target from root until it ends.
//
// An invalid target or empty root returns a nil Result and an error wrapping
// util.ErrInvalidTarget. Otherwise a Result is always returned. The error is
// non-nil only when the trace was canceled or a switch could not be queried
// (status connection_failed); not_found, loop_detected and hop_limit are
// reported through Result.Status alone.
func (t *Tracer) Trace(ctx context.Context, root, target string) (*Result, error) {
	ip, err := util.NormalizeIPv4(target)
	if err != nil {
		return nil, err
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("%w: root device is required", util.ErrInvalidTarget)
	}

	ctx, span := t.otel.Start(ctx, "trace "+ip, oteltrace.WithAttributes(
		attribute.String("switchtrace.target", ip),
		attribute.String("switchtrace.root", root),
	))
	defer span.End()

	log := util.WithTrace(root, ip)
	res := &Result{
		Target:    ip,
		Root:      root,
		Path:      Path{},
		StartedAt: time.Now(),
	}

	visited := NewVisitedSet()
	device := root
	var hint extract.HardwareAddr
	var traceErr error

loop:
	for {
		if err := ctx.Err(); err != nil {
			res.Status = StatusCanceled
			traceErr = err
			break
		}

		id := t.opts.Directory.Canonical(device)
		if visited.Contains(id) {
			log.Warnf("%s already visited, stopping", device)
			res.Status = StatusLoopDetected
			break
		}
		if visited.Len() >= t.opts.MaxHops {
			log.Warnf("hop limit %d reached before %s", t.opts.MaxHops, device)
			res.Status = StatusHopLimit
			break
		}
		visited.Add(id)

		outcome, err := t.visit(ctx, device, ip, hint)
		if err != nil {
			traceErr = err
			if ctx.Err() != nil {
				res.Status = StatusCanceled
			} else {
				res.Status = StatusConnectionFailed
			}
			log.Warnf("stopping at %s: %v", device, err)
			break
		}

		switch outcome.Kind {
		case OutcomeNotFound:
			log.Infof("%s: target not found", device)
			res.Status = StatusNotFound
			break loop
		case OutcomeTerminated:
			hop := outcome.hop(device, ip)
			res.Path = append(res.Path, hop)
			log.Infof("%s: endpoint on %s vlan %d", device, hop.Port, hop.VLAN)
			res.Status = StatusSuccess
			break loop
		case OutcomeForwarded:
			hop := outcome.hop(device, ip)
			res.Path = append(res.Path, hop)
			log.Infof("%s: %s leads to %s", device, hop.Port, hop.NextDevice)
			hint = outcome.HardwareAddr
			device = outcome.Neighbor
		}
	}

	res.Visited = visited.List()
	res.Duration = time.Since(res.StartedAt)
	if traceErr != nil {
		res.Error = traceErr.Error()
		span.RecordError(traceErr)
		span.SetStatus(codes.Error, string(res.Status))
	}
	span.SetAttributes(
		attribute.String("switchtrace.status", string(res.Status)),
		attribute.Int("switchtrace.hops", len(res.Path)),
	)
	t.opts.Recorder.TraceFinished(res)

	return res, traceErr
}

// visit opens a session to device, resolves one hop and closes the session
// on every path.
func (t *Tracer) visit(ctx context.Context, device, ip string, hint extract.HardwareAddr) (HopOutcome, error) {
	ctx, span := t.otel.Start(ctx, "hop "+device, oteltrace.WithAttributes(
		attribute.String("switchtrace.device", device),
	))
	defer span.End()

	sess, err := t.open(ctx, device)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		return HopOutcome{}, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			util.WithDevice(device).Debugf("close: %v", err)
		}
	}()

	outcome, err := t.resolver.Resolve(ctx, sess, t.opts.Directory.CommandsFor(device), ip, hint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return outcome, err
	}
	span.SetAttributes(
		attribute.String("switchtrace.outcome", string(outcome.Kind)),
		attribute.String("switchtrace.port", outcome.Entry.Port),
	)
	return outcome, nil
}

func (t *Tracer) open(ctx context.Context, device string) (session.Session, error) {
	if _, ok := t.dialer.(session.AttemptTimer); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.ConnectTimeout)
		defer cancel()
	}

	sess, err := t.dialer.Open(ctx, device)
	t.opts.Recorder.SessionOpened(device, err)
	if err != nil {
		if !errors.Is(err, util.ErrConnectionFailed) {
			err = util.NewConnectionError(device, err)
		}
		return nil, err
	}
	return sess, nil
}
