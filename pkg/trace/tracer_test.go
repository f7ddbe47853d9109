package trace

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/switchtrace/switchtrace/internal/testutil"
	"github.com/switchtrace/switchtrace/pkg/dialect"
	"github.com/switchtrace/switchtrace/pkg/extract"
	"github.com/switchtrace/switchtrace/pkg/session"
	"github.com/switchtrace/switchtrace/pkg/util"
)

const (
	targetIP = "10.0.0.5"
	targetHW = "0011.2233.4455"
)

func hw(t *testing.T, s string) extract.HardwareAddr {
	t.Helper()
	addr, err := extract.ParseHardwareAddr(s)
	if err != nil {
		t.Fatal(err)
	}
	return addr
}

// twoSwitchTopology is root R uplinked on Gi0/1 to S (10.0.0.2), with the
// endpoint on S's access port Fa0/5.
func twoSwitchTopology() *testutil.FakeDialer {
	d := testutil.NewFakeDialer()
	d.Device("R").
		WithARP(targetIP, targetHW).
		WithFDB(targetHW, 10, "Gi0/1").
		WithNeighbor("Gi0/1", "10.0.0.2")
	d.Device("10.0.0.2").
		WithARP(targetIP, targetHW).
		WithFDB(targetHW, 10, "Fa0/5")
	return d
}

func assertAllClosed(t *testing.T, d *testutil.FakeDialer) {
	t.Helper()
	if open := d.Unclosed(); len(open) > 0 {
		t.Errorf("sessions left open: %v", open)
	}
}

var ignoreTiming = cmpopts.IgnoreFields(Result{}, "StartedAt", "Duration")

func TestTrace_TwoSwitches(t *testing.T) {
	d := twoSwitchTopology()
	tr := New(d, Options{})

	res, err := tr.Trace(context.Background(), "R", targetIP)
	if err != nil {
		t.Fatalf("Trace() error: %v", err)
	}

	want := &Result{
		Target: targetIP,
		Root:   "R",
		Status: StatusSuccess,
		Path: Path{
			{Device: "R", HardwareAddr: hw(t, targetHW), VLAN: 10, Port: "Gi0/1", Outcome: OutcomeForwarded, NextDevice: "10.0.0.2"},
			{Device: "10.0.0.2", HardwareAddr: hw(t, targetHW), VLAN: 10, Port: "Fa0/5", Outcome: OutcomeTerminated, Target: targetIP},
		},
		Visited: []string{"r", "10.0.0.2"},
	}
	if diff := cmp.Diff(want, res, ignoreTiming); diff != "" {
		t.Errorf("Trace() mismatch (-want +got):\n%s", diff)
	}

	if endpoint, ok := res.Endpoint(); !ok || endpoint.Port != "Fa0/5" {
		t.Errorf("Endpoint() = %+v, %v", endpoint, ok)
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}
	assertAllClosed(t, d)
}

func TestTrace_LoopDetected(t *testing.T) {
	d := testutil.NewFakeDialer()
	d.Device("10.0.0.1").
		WithARP(targetIP, targetHW).
		WithFDB(targetHW, 10, "Gi0/1").
		WithNeighbor("Gi0/1", "10.0.0.2")
	d.Device("10.0.0.2").
		WithARP(targetIP, targetHW).
		WithFDB(targetHW, 10, "Gi0/2").
		WithNeighbor("Gi0/2", "10.0.0.1")

	res, err := New(d, Options{}).Trace(context.Background(), "10.0.0.1", targetIP)
	if err != nil {
		t.Fatalf("Trace() error: %v", err)
	}
	if res.Status != StatusLoopDetected {
		t.Errorf("Status = %s, want %s", res.Status, StatusLoopDetected)
	}
	if len(res.Path) > 2 {
		t.Errorf("len(Path) = %d, want <= 2", len(res.Path))
	}
	if got := d.Opened(); !cmp.Equal(got, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Errorf("Opened = %v, the first switch must not be queried twice", got)
	}
	if !errors.Is(res.Err(), util.ErrLoopDetected) {
		t.Errorf("Err() = %v, want ErrLoopDetected", res.Err())
	}
	assertAllClosed(t, d)
}

// aliasDirectory maps management addresses back to switch names.
type aliasDirectory map[string]string

func (a aliasDirectory) Canonical(device string) string {
	if name, ok := a[device]; ok {
		return name
	}
	return device
}

func (aliasDirectory) CommandsFor(string) dialect.Commands {
	c, _ := dialect.Lookup(dialect.Default)
	return c
}

func TestTrace_LoopThroughAlias(t *testing.T) {
	d := testutil.NewFakeDialer()
	d.Device("R").
		WithARP(targetIP, targetHW).
		WithFDB(targetHW, 10, "Gi0/1").
		WithNeighbor("Gi0/1", "10.0.0.2")
	d.Device("10.0.0.2").
		WithARP(targetIP, targetHW).
		WithFDB(targetHW, 10, "Gi0/2").
		WithNeighbor("Gi0/2", "10.0.0.1")
	d.Device("10.0.0.1") // R's management address, must never be dialed

	tr := New(d, Options{Directory: aliasDirectory{"10.0.0.1": "R"}})
	res, err := tr.Trace(context.Background(), "R", targetIP)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusLoopDetected {
		t.Errorf("Status = %s, want %s", res.Status, StatusLoopDetected)
	}
	if got := d.Opened(); len(got) != 2 {
		t.Errorf("Opened = %v, want 2 sessions", got)
	}
}

func TestTrace_TerminationBound(t *testing.T) {
	for _, n := range []int{1, 2, 3, 6, 10} {
		t.Run(fmt.Sprintf("ring of %d", n), func(t *testing.T) {
			d := testutil.NewFakeDialer()
			for i := 0; i < n; i++ {
				next := fmt.Sprintf("10.1.0.%d", (i+1)%n+1)
				d.Device(fmt.Sprintf("10.1.0.%d", i+1)).
					WithARP(targetIP, targetHW).
					WithFDB(targetHW, 1, "Gi0/1").
					WithNeighbor("Gi0/1", next)
			}

			res, err := New(d, Options{}).Trace(context.Background(), "10.1.0.1", targetIP)
			if err != nil {
				t.Fatal(err)
			}
			if res.Status != StatusLoopDetected {
				t.Errorf("Status = %s, want %s", res.Status, StatusLoopDetected)
			}
			if got := len(d.Opened()); got > n {
				t.Errorf("opened %d sessions for %d switches", got, n)
			}
			if len(res.Visited) != n {
				t.Errorf("len(Visited) = %d, want %d", len(res.Visited), n)
			}
			assertAllClosed(t, d)
		})
	}
}

func TestTrace_NotFound(t *testing.T) {
	t.Run("no arp entry at root", func(t *testing.T) {
		d := testutil.NewFakeDialer()
		d.Device("R")

		res, err := New(d, Options{}).Trace(context.Background(), "R", targetIP)
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != StatusNotFound || len(res.Path) != 0 {
			t.Errorf("got status %s path %v", res.Status, res.Path)
		}
		if !errors.Is(res.Err(), util.ErrNotFound) {
			t.Errorf("Err() = %v, want ErrNotFound", res.Err())
		}
		assertAllClosed(t, d)
	})

	t.Run("missing from second forwarding table", func(t *testing.T) {
		d := twoSwitchTopology()
		d.Device("10.0.0.2").WithOutput("show mac address-table address 0011.2233.4455", "")

		res, err := New(d, Options{}).Trace(context.Background(), "R", targetIP)
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != StatusNotFound {
			t.Errorf("Status = %s, want %s", res.Status, StatusNotFound)
		}
		if len(res.Path) != 1 || res.Path[0].Device != "R" {
			t.Errorf("Path = %+v, want only the root hop", res.Path)
		}
		assertAllClosed(t, d)
	})
}

func TestTrace_ConnectionFailed(t *testing.T) {
	d := testutil.NewFakeDialer()
	d.Device("R").
		WithARP(targetIP, targetHW).
		WithFDB(targetHW, 10, "Gi0/1").
		WithNeighbor("Gi0/1", "10.0.0.9")

	res, err := New(d, Options{}).Trace(context.Background(), "R", targetIP)
	if !errors.Is(err, util.ErrConnectionFailed) {
		t.Fatalf("Trace() error = %v, want ErrConnectionFailed", err)
	}
	if res == nil {
		t.Fatal("Result must be returned with the partial path")
	}
	if res.Status != StatusConnectionFailed {
		t.Errorf("Status = %s, want %s", res.Status, StatusConnectionFailed)
	}
	if len(res.Path) != 1 || res.Path[0].NextDevice != "10.0.0.9" {
		t.Errorf("Path = %+v", res.Path)
	}
	if res.Error == "" {
		t.Error("Result.Error should describe the failure")
	}
	assertAllClosed(t, d)
}

type singleTarget session.Target

func (s singleTarget) Target(string) (session.Target, error) {
	return session.Target(s), nil
}

// silentListener accepts TCP connections and never writes to them, so every
// SSH handshake hangs until its deadline.
func silentListener(t *testing.T) (session.Target, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var accepts atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepts.Add(1)
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
	})

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return session.Target{
		Name:      "R",
		Address:   host,
		Port:      port,
		Transport: session.TransportSSH,
		Username:  "admin",
		Password:  "secret",
	}, &accepts
}

func TestTrace_RetriesHungConnect(t *testing.T) {
	target, accepts := silentListener(t)
	dialer := session.NewDialer(singleTarget(target), 200*time.Millisecond,
		util.RetryConfig{Count: 2, Delay: 10 * time.Millisecond})

	tr := New(dialer, Options{ConnectTimeout: 200 * time.Millisecond})
	res, err := tr.Trace(context.Background(), "R", targetIP)
	if !errors.Is(err, util.ErrConnectionFailed) {
		t.Fatalf("Trace() error = %v, want ErrConnectionFailed", err)
	}
	if res == nil || res.Status != StatusConnectionFailed {
		t.Fatalf("Result = %+v, want status %s", res, StatusConnectionFailed)
	}
	if got := accepts.Load(); got != 3 {
		t.Errorf("connection attempts = %d, want 3", got)
	}
}

func TestTrace_CommandFailures(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		d := twoSwitchTopology()
		d.Device("10.0.0.2").HangOn("show ip arp " + targetIP)

		tr := New(d, Options{CommandTimeout: 50 * time.Millisecond})
		res, err := tr.Trace(context.Background(), "R", targetIP)
		if !errors.Is(err, util.ErrTimeout) {
			t.Fatalf("Trace() error = %v, want ErrTimeout", err)
		}
		if res.Status != StatusConnectionFailed {
			t.Errorf("Status = %s, want %s", res.Status, StatusConnectionFailed)
		}
		if len(res.Path) != 1 {
			t.Errorf("len(Path) = %d, want 1", len(res.Path))
		}
		assertAllClosed(t, d)
	})

	t.Run("send error", func(t *testing.T) {
		d := twoSwitchTopology()
		d.Device("R").FailOn("show cdp neighbors Gi0/1 detail", errors.New("broken pipe"))

		res, err := New(d, Options{}).Trace(context.Background(), "R", targetIP)
		var cmdErr *util.CommandError
		if !errors.As(err, &cmdErr) {
			t.Fatalf("Trace() error = %v, want *CommandError", err)
		}
		if cmdErr.Command != "show cdp neighbors Gi0/1 detail" {
			t.Errorf("Command = %q", cmdErr.Command)
		}
		if res.Status != StatusConnectionFailed || len(res.Path) != 0 {
			t.Errorf("got status %s path %v", res.Status, res.Path)
		}
		assertAllClosed(t, d)
	})
}

func TestTrace_Canceled(t *testing.T) {
	d := twoSwitchTopology()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(d, Options{}).Trace(ctx, "R", targetIP)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Trace() error = %v, want context.Canceled", err)
	}
	if res.Status != StatusCanceled {
		t.Errorf("Status = %s, want %s", res.Status, StatusCanceled)
	}
	if len(d.Opened()) != 0 {
		t.Errorf("Opened = %v, want none", d.Opened())
	}
}

func TestTrace_CanceledMidCommand(t *testing.T) {
	d := twoSwitchTopology()
	d.Device("10.0.0.2").HangOn("show ip arp " + targetIP)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := New(d, Options{}).Trace(ctx, "R", targetIP)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Trace() error = %v", err)
	}
	if res.Status != StatusCanceled {
		t.Errorf("Status = %s, want %s", res.Status, StatusCanceled)
	}
	assertAllClosed(t, d)
}

func TestTrace_HopLimit(t *testing.T) {
	d := testutil.NewFakeDialer()
	for i := 1; i <= 5; i++ {
		d.Device(fmt.Sprintf("10.2.0.%d", i)).
			WithARP(targetIP, targetHW).
			WithFDB(targetHW, 1, "Gi0/1").
			WithNeighbor("Gi0/1", fmt.Sprintf("10.2.0.%d", i+1))
	}

	res, err := New(d, Options{MaxHops: 3}).Trace(context.Background(), "10.2.0.1", targetIP)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusHopLimit {
		t.Errorf("Status = %s, want %s", res.Status, StatusHopLimit)
	}
	if len(res.Path) != 3 || len(d.Opened()) != 3 {
		t.Errorf("len(Path) = %d, opened %d, want 3 and 3", len(res.Path), len(d.Opened()))
	}
}

func TestTrace_InvalidInput(t *testing.T) {
	tr := New(testutil.NewFakeDialer(), Options{})

	for _, tc := range []struct{ root, target string }{
		{"R", "not-an-ip"},
		{"R", "10.0.0.256"},
		{"R", "2001:db8::1"},
		{"", targetIP},
	} {
		res, err := tr.Trace(context.Background(), tc.root, tc.target)
		if res != nil {
			t.Errorf("Trace(%q, %q) returned a result", tc.root, tc.target)
		}
		if !errors.Is(err, util.ErrInvalidTarget) {
			t.Errorf("Trace(%q, %q) error = %v, want ErrInvalidTarget", tc.root, tc.target, err)
		}
	}
}

func TestTrace_NormalizesTarget(t *testing.T) {
	res, err := New(twoSwitchTopology(), Options{}).Trace(context.Background(), "R", " (10.0.0.5) ")
	if err != nil {
		t.Fatal(err)
	}
	if res.Target != targetIP || res.Status != StatusSuccess {
		t.Errorf("got target %q status %s", res.Target, res.Status)
	}
}

func TestTrace_CarryHardwareAddr(t *testing.T) {
	topology := func() *testutil.FakeDialer {
		d := testutil.NewFakeDialer()
		d.Device("R").
			WithARP(targetIP, targetHW).
			WithFDB(targetHW, 10, "Gi0/1").
			WithNeighbor("Gi0/1", "10.0.0.2")
		// Pure layer-2 switch: no ARP entry for the target.
		d.Device("10.0.0.2").
			WithFDB(targetHW, 10, "Fa0/5")
		return d
	}

	res, err := New(topology(), Options{}).Trace(context.Background(), "R", targetIP)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusNotFound {
		t.Errorf("without carry: Status = %s, want %s", res.Status, StatusNotFound)
	}

	res, err = New(topology(), Options{CarryHardwareAddr: true}).Trace(context.Background(), "R", targetIP)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSuccess {
		t.Errorf("with carry: Status = %s, want %s", res.Status, StatusSuccess)
	}
	if last, _ := res.Path.Last(); last.Port != "Fa0/5" {
		t.Errorf("last hop port = %q, want Fa0/5", last.Port)
	}
}

func TestTrace_NeighborIsTarget(t *testing.T) {
	d := testutil.NewFakeDialer()
	d.Device("R").
		WithARP(targetIP, targetHW).
		WithFDB(targetHW, 10, "Gi0/7").
		WithNeighbor("Gi0/7", targetIP)

	res, err := New(d, Options{}).Trace(context.Background(), "R", targetIP)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusSuccess || len(res.Path) != 1 || res.Path[0].Outcome != OutcomeTerminated {
		t.Errorf("got status %s path %+v", res.Status, res.Path)
	}
}

func TestTrace_LearnHostname(t *testing.T) {
	d := twoSwitchTopology()
	d.Device("R").WithHostname("core-r")

	res, err := New(d, Options{LearnHostname: true}).Trace(context.Background(), "R", targetIP)
	if err != nil {
		t.Fatal(err)
	}
	if res.Path[0].Hostname != "core-r" {
		t.Errorf("Path[0].Hostname = %q, want core-r", res.Path[0].Hostname)
	}
	if res.Path[1].Hostname != "" {
		t.Errorf("Path[1].Hostname = %q, want empty", res.Path[1].Hostname)
	}
}

type countingRecorder struct {
	mu       sync.Mutex
	traces   []Status
	sessions int
	failed   int
	commands int
}

func (r *countingRecorder) TraceFinished(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, res.Status)
}

func (r *countingRecorder) SessionOpened(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions++
	if err != nil {
		r.failed++
	}
}

func (r *countingRecorder) CommandFinished(string, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands++
}

func TestTrace_Recorder(t *testing.T) {
	rec := &countingRecorder{}
	tr := New(twoSwitchTopology(), Options{Recorder: rec})

	if _, err := tr.Trace(context.Background(), "R", targetIP); err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(rec.traces, []Status{StatusSuccess}) {
		t.Errorf("traces = %v", rec.traces)
	}
	if rec.sessions != 2 || rec.failed != 0 {
		t.Errorf("sessions = %d failed = %d", rec.sessions, rec.failed)
	}
	// arp, mac, cdp on each switch
	if rec.commands != 6 {
		t.Errorf("commands = %d, want 6", rec.commands)
	}
}

func TestTrace_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tr := New(twoSwitchTopology(), Options{TracerProvider: tp})
	if _, err := tr.Trace(context.Background(), "R", targetIP); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	want := []string{"hop R", "hop 10.0.0.2", "trace 10.0.0.5"}
	if !cmp.Equal(names, want) {
		t.Errorf("spans = %v, want %v", names, want)
	}
}

func TestTrace_ConcurrentIndependent(t *testing.T) {
	d := twoSwitchTopology()
	tr := New(d, Options{})

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = tr.Trace(context.Background(), "R", targetIP)
		}()
	}
	wg.Wait()

	for i, res := range results {
		if res == nil || res.Status != StatusSuccess || len(res.Path) != 2 {
			t.Errorf("trace %d: %+v", i, res)
		}
	}
	assertAllClosed(t, d)
}
