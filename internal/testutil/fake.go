// Package testutil provides test helpers: a scripted fake switch topology
// for unit tests, and Redis helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/switchtrace/switchtrace/pkg/dialect"
	"github.com/switchtrace/switchtrace/pkg/extract"
	"github.com/switchtrace/switchtrace/pkg/session"
	"github.com/switchtrace/switchtrace/pkg/util"
)

// FakeDialer is a session.Dialer over an in-memory topology. Each device
// answers commands from a script keyed by the exact command text, using the
// default (cisco_ios) dialect.
type FakeDialer struct {
	mu      sync.Mutex
	devices map[string]*FakeDevice
	opened  []string
	closed  []string
	sent    map[string][]string
}

// FakeDevice is one scripted switch.
type FakeDevice struct {
	Name    string
	OpenErr error

	outputs map[string]string
	errs    map[string]error
	hang    map[string]bool
	cmds    dialect.Commands
}

// NewFakeDialer creates an empty topology.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{
		devices: make(map[string]*FakeDevice),
		sent:    make(map[string][]string),
	}
}

// Device returns the device named name, creating it if needed.
func (d *FakeDialer) Device(name string) *FakeDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dev, ok := d.devices[name]; ok {
		return dev
	}
	cmds, _ := dialect.Lookup(dialect.Default)
	dev := &FakeDevice{
		Name:    name,
		outputs: make(map[string]string),
		errs:    make(map[string]error),
		hang:    make(map[string]bool),
		cmds:    cmds,
	}
	d.devices[name] = dev
	return dev
}

// Open implements session.Dialer.
func (d *FakeDialer) Open(ctx context.Context, device string) (session.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dev, ok := d.devices[device]
	if !ok {
		return nil, util.NewConnectionError(device, fmt.Errorf("no route to host"))
	}
	if dev.OpenErr != nil {
		return nil, util.NewConnectionError(device, dev.OpenErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, util.NewConnectionError(device, err)
	}
	d.opened = append(d.opened, device)
	return &fakeSession{dialer: d, dev: dev}, nil
}

// Opened returns the devices sessions were opened to, in order.
func (d *FakeDialer) Opened() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.opened...)
}

// Sent returns the commands sent to device, in order.
func (d *FakeDialer) Sent(device string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.sent[device]...)
}

// Unclosed returns devices with more opened than closed sessions.
func (d *FakeDialer) Unclosed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := make(map[string]int)
	for _, name := range d.opened {
		count[name]++
	}
	for _, name := range d.closed {
		count[name]--
	}
	var out []string
	for name, n := range count {
		if n > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// WithARP scripts an address-resolution entry for ip.
func (dev *FakeDevice) WithARP(ip, hw string) *FakeDevice {
	addr := mustHW(hw)
	cmd := dialect.Expand(dev.cmds.ARP, dialect.Vars{IP: ip})
	dev.outputs[cmd] = fmt.Sprintf(
		"Protocol  Address          Age (min)  Hardware Addr   Type   Interface\n"+
			"Internet  %-15s         -   %s  ARPA   Vlan10\n", ip, addr.Dotted())
	return dev
}

// WithFDB scripts a forwarding-table entry.
func (dev *FakeDevice) WithFDB(hw string, vlan int, port string) *FakeDevice {
	addr := mustHW(hw)
	cmd := dialect.Expand(dev.cmds.ForwardingTable, dialect.Vars{MAC: addr.String(), MACDotted: addr.Dotted()})
	dev.outputs[cmd] = fmt.Sprintf(
		"          Mac Address Table\n"+
			"-------------------------------------------\n\n"+
			"Vlan    Mac Address       Type        Ports\n"+
			"----    -----------       --------    -----\n"+
			"%4d    %s    DYNAMIC     %s\n"+
			"Total Mac Addresses for this criterion: 1\n", vlan, addr.Dotted(), port)
	return dev
}

// WithNeighbor scripts a CDP neighbor with management address ip on port.
func (dev *FakeDevice) WithNeighbor(port, ip string) *FakeDevice {
	cmd := dialect.Expand(dev.cmds.NeighborDetail, dialect.Vars{Port: port})
	dev.outputs[cmd] = fmt.Sprintf(
		"-------------------------\n"+
			"Device ID: %s\n"+
			"Entry address(es):\n"+
			"  IP address: %s\n"+
			"Platform: cisco WS-C2960-24TT-L,  Capabilities: Switch IGMP\n"+
			"Interface: %s,  Port ID (outgoing port): GigabitEthernet0/24\n"+
			"Holdtime : 150 sec\n", ip, ip, util.NormalizeInterfaceName(port))
	return dev
}

// WithHostname scripts the hostname command.
func (dev *FakeDevice) WithHostname(name string) *FakeDevice {
	dev.outputs[dev.cmds.Hostname] = "hostname " + name + "\n"
	return dev
}

// WithOutput scripts the raw output of cmd.
func (dev *FakeDevice) WithOutput(cmd, output string) *FakeDevice {
	dev.outputs[cmd] = output
	return dev
}

// FailOn makes cmd fail with err.
func (dev *FakeDevice) FailOn(cmd string, err error) *FakeDevice {
	dev.errs[cmd] = err
	return dev
}

// HangOn makes cmd block until its context is done.
func (dev *FakeDevice) HangOn(cmd string) *FakeDevice {
	dev.hang[cmd] = true
	return dev
}

// Commands returns the command set the device answers.
func (dev *FakeDevice) Commands() dialect.Commands {
	return dev.cmds
}

func mustHW(s string) extract.HardwareAddr {
	hw, err := extract.ParseHardwareAddr(s)
	if err != nil {
		panic(err)
	}
	return hw
}

type fakeSession struct {
	dialer *FakeDialer
	dev    *FakeDevice

	mu     sync.Mutex
	closed bool
}

func (s *fakeSession) Device() string {
	return s.dev.Name
}

func (s *fakeSession) Send(ctx context.Context, cmd string) (string, error) {
	s.dialer.mu.Lock()
	s.dialer.sent[s.dev.Name] = append(s.dialer.sent[s.dev.Name], cmd)
	hang := s.dev.hang[cmd]
	err := s.dev.errs[cmd]
	out := s.dev.outputs[cmd]
	s.dialer.mu.Unlock()

	if hang {
		<-ctx.Done()
		return "", util.NewCommandError(s.dev.Name, cmd, ctx.Err())
	}
	if err != nil {
		return "", util.NewCommandError(s.dev.Name, cmd, err)
	}
	if strings.TrimSpace(cmd) == "" {
		return "", nil
	}
	return out, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.dialer.mu.Lock()
	s.dialer.closed = append(s.dialer.closed, s.dev.Name)
	s.dialer.mu.Unlock()
	return nil
}
