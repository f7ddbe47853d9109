package trace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/switchtrace/switchtrace/internal/testutil"
	"github.com/switchtrace/switchtrace/pkg/util"
)

func TestTraceMany(t *testing.T) {
	d := twoSwitchTopology()
	d.Device("R").
		WithARP("10.0.0.6", "0011.2233.4466").
		WithFDB("0011.2233.4466", 20, "Gi0/3")

	targets := []string{targetIP, "10.0.0.6", "10.0.0.7", "bogus"}
	results, err := New(d, Options{}).TraceMany(context.Background(), "R", targets, 2)

	if len(results) != len(targets) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(targets))
	}
	wantStatus := []Status{StatusSuccess, StatusSuccess, StatusNotFound}
	for i, want := range wantStatus {
		if results[i] == nil || results[i].Status != want {
			t.Errorf("results[%d] = %+v, want status %s", i, results[i], want)
		}
	}
	if results[3] != nil {
		t.Errorf("results[3] = %+v, want nil for invalid target", results[3])
	}

	if !errors.Is(err, util.ErrInvalidTarget) {
		t.Errorf("error = %v, want ErrInvalidTarget joined", err)
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("error %q should name the failing target", err)
	}
	assertAllClosed(t, d)
}

func TestTraceMany_NoErrors(t *testing.T) {
	results, err := New(twoSwitchTopology(), Options{}).TraceMany(context.Background(), "R", []string{targetIP, targetIP}, 0)
	if err != nil {
		t.Fatalf("TraceMany() error: %v", err)
	}
	for i, res := range results {
		if res.Status != StatusSuccess {
			t.Errorf("results[%d].Status = %s", i, res.Status)
		}
	}
}

func TestLocate(t *testing.T) {
	d := twoSwitchTopology()
	d.Device("edge1") // knows nothing about the target
	tr := New(d, Options{})

	res, err := tr.Locate(context.Background(), []string{"edge1", "unreachable", "R"}, targetIP)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if res.Root != "R" || res.Status != StatusSuccess {
		t.Errorf("Locate() = root %q status %s", res.Root, res.Status)
	}
	assertAllClosed(t, d)
}

func TestLocate_NoSuccess(t *testing.T) {
	d := testutil.NewFakeDialer()
	d.Device("edge1")
	tr := New(d, Options{})

	res, err := tr.Locate(context.Background(), []string{"edge1", "unreachable"}, targetIP)
	if !errors.Is(err, util.ErrConnectionFailed) {
		t.Errorf("Locate() error = %v, want the last root's error", err)
	}
	if res == nil || res.Root != "unreachable" || res.Status != StatusConnectionFailed {
		t.Errorf("Locate() = %+v, want the last result", res)
	}

	if _, err := tr.Locate(context.Background(), nil, targetIP); err == nil {
		t.Error("Locate() with no roots should fail")
	}
	if res, err := tr.Locate(context.Background(), []string{"edge1"}, "x"); res != nil || !errors.Is(err, util.ErrInvalidTarget) {
		t.Errorf("Locate() invalid target = %v, %v", res, err)
	}
}

func TestLocate_StopsOnCancel(t *testing.T) {
	d := twoSwitchTopology()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(d, Options{}).Locate(ctx, []string{"R", "10.0.0.2"}, targetIP)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Locate() error = %v", err)
	}
	if res.Root != "R" || res.Status != StatusCanceled {
		t.Errorf("Locate() = root %q status %s, want to stop at the first root", res.Root, res.Status)
	}
}
