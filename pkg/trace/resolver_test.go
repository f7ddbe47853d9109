package trace

import (
	"context"
	"testing"

	"github.com/switchtrace/switchtrace/internal/testutil"
	"github.com/switchtrace/switchtrace/pkg/dialect"
)

func TestResolver_Resolve(t *testing.T) {
	cmds, _ := dialect.Lookup(dialect.Default)

	tests := []struct {
		name     string
		setup    func(*testutil.FakeDevice)
		wantKind Outcome
		wantPort string
		wantNext string
		wantSent int
	}{
		{
			name:     "arp miss",
			setup:    func(*testutil.FakeDevice) {},
			wantKind: OutcomeNotFound,
			wantSent: 1,
		},
		{
			name: "forwarding miss",
			setup: func(d *testutil.FakeDevice) {
				d.WithARP(targetIP, targetHW)
			},
			wantKind: OutcomeNotFound,
			wantSent: 2,
		},
		{
			name: "access port",
			setup: func(d *testutil.FakeDevice) {
				d.WithARP(targetIP, targetHW).WithFDB(targetHW, 10, "Fa0/5")
			},
			wantKind: OutcomeTerminated,
			wantPort: "Fa0/5",
			wantSent: 3,
		},
		{
			name: "uplink",
			setup: func(d *testutil.FakeDevice) {
				d.WithARP(targetIP, targetHW).WithFDB(targetHW, 10, "Gi0/1").WithNeighbor("Gi0/1", "10.0.0.2")
			},
			wantKind: OutcomeForwarded,
			wantPort: "Gi0/1",
			wantNext: "10.0.0.2",
			wantSent: 3,
		},
		{
			name: "neighbor on another port",
			setup: func(d *testutil.FakeDevice) {
				d.WithARP(targetIP, targetHW).WithFDB(targetHW, 10, "Gi0/1").
					WithOutput("show cdp neighbors Gi0/1 detail",
						"Device ID: x\n  IP address: 10.0.0.3\nInterface: GigabitEthernet0/2,  Port ID (outgoing port): Gi0/1\n")
			},
			wantKind: OutcomeTerminated,
			wantPort: "Gi0/1",
			wantSent: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testutil.NewFakeDialer()
			tt.setup(d.Device("sw"))
			sess, err := d.Open(context.Background(), "sw")
			if err != nil {
				t.Fatal(err)
			}
			defer sess.Close()

			r := &Resolver{}
			out, err := r.Resolve(context.Background(), sess, cmds, targetIP, hw(t, "aaaa.bbbb.cccc"))
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if out.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", out.Kind, tt.wantKind)
			}
			if out.Entry.Port != tt.wantPort {
				t.Errorf("Port = %q, want %q", out.Entry.Port, tt.wantPort)
			}
			if out.Neighbor != tt.wantNext {
				t.Errorf("Neighbor = %q, want %q", out.Neighbor, tt.wantNext)
			}
			if got := len(d.Sent("sw")); got != tt.wantSent {
				t.Errorf("sent %d commands, want %d: %v", got, tt.wantSent, d.Sent("sw"))
			}
		})
	}
}

func TestResolver_CommandOrder(t *testing.T) {
	d := testutil.NewFakeDialer()
	d.Device("sw").WithARP(targetIP, targetHW).WithFDB(targetHW, 10, "Gi0/1").WithNeighbor("Gi0/1", "10.0.0.2")
	sess, _ := d.Open(context.Background(), "sw")
	defer sess.Close()

	cmds, _ := dialect.Lookup(dialect.Default)
	r := &Resolver{LearnHostname: true}
	if _, err := r.Resolve(context.Background(), sess, cmds, targetIP, hw(t, targetHW)); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"show running-config | include ^hostname",
		"show ip arp 10.0.0.5",
		"show mac address-table address 0011.2233.4455",
		"show cdp neighbors Gi0/1 detail",
	}
	got := d.Sent("sw")
	if len(got) != len(want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}
}
