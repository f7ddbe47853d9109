// Package inventory loads the YAML description of the switches a trace may
// visit: how to reach each one, which credentials to use and which command
// dialect it speaks.
//
// Example:
//
//	defaults:
//	  username: admin
//	  password_env: SWITCHTRACE_PASSWORD
//	  dialect: cisco_ios
//	devices:
//	  core1:
//	    address: 10.0.0.1
//	    aliases: [core1.example.net]
//	  lab-console:
//	    transport: serial
//	    serial: {device: /dev/ttyUSB0, baud: 9600}
//	trace:
//	  command_timeout: 30s
//	  max_hops: 32
package inventory

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/switchtrace/switchtrace/pkg/dialect"
	"github.com/switchtrace/switchtrace/pkg/session"
	"github.com/switchtrace/switchtrace/pkg/util"
)

// Inventory is a parsed inventory file.
type Inventory struct {
	Defaults DeviceConfig             `yaml:"defaults"`
	Devices  map[string]*DeviceConfig `yaml:"devices"`
	Dialects map[string]DialectConfig `yaml:"dialects,omitempty"`
	Trace    TraceConfig              `yaml:"trace"`

	// index maps lowercased names, aliases and addresses to device names.
	index map[string]string
}

// DeviceConfig describes how to reach one device. Empty fields inherit from
// the inventory defaults.
type DeviceConfig struct {
	Address     string        `yaml:"address,omitempty"`
	Aliases     []string      `yaml:"aliases,omitempty"`
	Transport   string        `yaml:"transport,omitempty"`
	Port        int           `yaml:"port,omitempty"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	PasswordEnv string        `yaml:"password_env,omitempty"`
	KeyFile     string        `yaml:"key_file,omitempty"`
	KnownHosts  string        `yaml:"known_hosts,omitempty"`
	Dialect     string        `yaml:"dialect,omitempty"`
	Serial      *SerialConfig `yaml:"serial,omitempty"`
}

// SerialConfig names a console port.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud,omitempty"`
}

// DialectConfig is a custom command set, optionally layered on a built-in
// dialect named by Base.
type DialectConfig struct {
	Base             string `yaml:"base,omitempty"`
	dialect.Commands `yaml:",inline"`
}

// TraceConfig holds tracer limits and behavior switches.
type TraceConfig struct {
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	MaxHops        int           `yaml:"max_hops,omitempty"`

	// CarryHardwareAddress reuses the address learned upstream when a
	// downstream switch has no address-resolution entry for the target.
	CarryHardwareAddress bool `yaml:"carry_hardware_address,omitempty"`

	LearnHostname bool `yaml:"learn_hostname,omitempty"`

	// OnlyListed refuses to connect to devices missing from the inventory.
	OnlyListed bool `yaml:"only_listed,omitempty"`

	Retry util.RetryConfig `yaml:"retry,omitempty"`
}

// Default trace limits.
const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultConnectTimeout = session.DefaultConnectTimeout
	DefaultMaxHops        = 32
)

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}
	inv, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("inventory %s: %w", path, err)
	}
	return inv, nil
}

// Parse decodes and validates an inventory document.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}
	inv.applyDefaults()
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	inv.buildIndex()
	return &inv, nil
}

// New returns an empty inventory: every device is reached by its own name
// with the built-in defaults.
func New() *Inventory {
	inv := &Inventory{}
	inv.applyDefaults()
	inv.buildIndex()
	return inv
}

func (inv *Inventory) applyDefaults() {
	if inv.Devices == nil {
		inv.Devices = map[string]*DeviceConfig{}
	}
	if inv.Defaults.Transport == "" {
		inv.Defaults.Transport = string(session.TransportSSH)
	}
	if inv.Defaults.Dialect == "" {
		inv.Defaults.Dialect = dialect.Default
	}
	if inv.Trace.CommandTimeout == 0 {
		inv.Trace.CommandTimeout = DefaultCommandTimeout
	}
	if inv.Trace.ConnectTimeout == 0 {
		inv.Trace.ConnectTimeout = DefaultConnectTimeout
	}
	if inv.Trace.MaxHops == 0 {
		inv.Trace.MaxHops = DefaultMaxHops
	}
	for name, dev := range inv.Devices {
		if dev == nil {
			inv.Devices[name] = &DeviceConfig{}
		}
	}
}

// Validate checks transports, dialect references and serial settings.
func (inv *Inventory) Validate() error {
	v := &util.ValidationBuilder{}

	validTransport := func(t string) bool {
		return t == "" || t == string(session.TransportSSH) || t == string(session.TransportSerial)
	}
	v.Add(validTransport(inv.Defaults.Transport),
		fmt.Sprintf("defaults: unknown transport %q", inv.Defaults.Transport))
	v.Add(inv.dialectKnown(inv.Defaults.Dialect),
		fmt.Sprintf("defaults: unknown dialect %q", inv.Defaults.Dialect))
	v.Add(inv.Trace.MaxHops > 0, "trace: max_hops must be positive")
	v.Add(inv.Trace.Retry.Count >= 0, "trace: retry.count must not be negative")

	for _, name := range inv.DeviceNames() {
		dev := inv.Devices[name]
		v.Add(validTransport(dev.Transport),
			fmt.Sprintf("device %s: unknown transport %q", name, dev.Transport))
		if dev.Dialect != "" {
			v.Add(inv.dialectKnown(dev.Dialect),
				fmt.Sprintf("device %s: unknown dialect %q", name, dev.Dialect))
		}
		transport := dev.Transport
		if transport == "" {
			transport = inv.Defaults.Transport
		}
		if transport == string(session.TransportSerial) {
			v.Add(dev.Serial != nil && dev.Serial.Device != "",
				fmt.Sprintf("device %s: serial transport requires serial.device", name))
		}
	}

	names := make([]string, 0, len(inv.Dialects))
	for name := range inv.Dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dc := inv.Dialects[name]
		if dc.Base != "" {
			if _, ok := dialect.Lookup(dc.Base); !ok {
				v.AddErrorf("dialect %s: unknown base %q", name, dc.Base)
				continue
			}
		}
		if err := inv.resolveDialect(name).Validate(); err != nil {
			v.AddErrorf("dialect %s: %v", name, err)
		}
	}

	return v.Build()
}

func (inv *Inventory) dialectKnown(name string) bool {
	if _, ok := inv.Dialects[name]; ok {
		return true
	}
	_, ok := dialect.Lookup(name)
	return ok
}

func (inv *Inventory) buildIndex() {
	inv.index = make(map[string]string)
	for _, name := range inv.DeviceNames() {
		dev := inv.Devices[name]
		inv.index[strings.ToLower(name)] = name
		for _, alias := range dev.Aliases {
			inv.index[strings.ToLower(alias)] = name
		}
		if dev.Address != "" {
			inv.index[strings.ToLower(dev.Address)] = name
		}
	}
}

// DeviceNames returns the configured device names, sorted.
func (inv *Inventory) DeviceNames() []string {
	names := make([]string, 0, len(inv.Devices))
	for name := range inv.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
