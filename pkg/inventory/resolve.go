package inventory

import (
	"fmt"
	"os"
	"strings"

	"github.com/switchtrace/switchtrace/pkg/dialect"
	"github.com/switchtrace/switchtrace/pkg/session"
	"github.com/switchtrace/switchtrace/pkg/util"
)

// Canonical returns the identity used to detect revisits: the configured
// device name when device is a known name, alias or address, otherwise the
// trimmed, lowercased input.
func (inv *Inventory) Canonical(device string) string {
	key := strings.ToLower(strings.TrimSpace(device))
	if name, ok := inv.index[key]; ok {
		return name
	}
	return key
}

// Lookup returns the device's configuration merged over the defaults. A
// device that is not listed is reached at its own name, unless the
// inventory sets only_listed.
func (inv *Inventory) Lookup(device string) (DeviceConfig, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return DeviceConfig{}, fmt.Errorf("%w: empty device name", util.ErrUnknownDevice)
	}

	name, listed := inv.index[strings.ToLower(device)]
	if !listed {
		if inv.Trace.OnlyListed {
			return DeviceConfig{}, fmt.Errorf("%w: %s", util.ErrUnknownDevice, device)
		}
		merged := merge(inv.Defaults, DeviceConfig{})
		merged.Address = device
		return merged, nil
	}

	merged := merge(inv.Defaults, *inv.Devices[name])
	if merged.Address == "" {
		merged.Address = name
	}
	return merged, nil
}

func merge(base, dev DeviceConfig) DeviceConfig {
	out := dev
	if out.Transport == "" {
		out.Transport = base.Transport
	}
	if out.Port == 0 {
		out.Port = base.Port
	}
	if out.Username == "" {
		out.Username = base.Username
	}
	if out.Password == "" && out.PasswordEnv == "" {
		out.Password = base.Password
		out.PasswordEnv = base.PasswordEnv
	}
	if out.KeyFile == "" {
		out.KeyFile = base.KeyFile
	}
	if out.KnownHosts == "" {
		out.KnownHosts = base.KnownHosts
	}
	if out.Dialect == "" {
		out.Dialect = base.Dialect
	}
	if out.Serial == nil && base.Serial != nil {
		s := *base.Serial
		out.Serial = &s
	}
	return out
}

// Target implements session.TargetResolver.
func (inv *Inventory) Target(device string) (session.Target, error) {
	dev, err := inv.Lookup(device)
	if err != nil {
		return session.Target{}, err
	}

	password := dev.Password
	if password == "" && dev.PasswordEnv != "" {
		password = os.Getenv(dev.PasswordEnv)
	}

	t := session.Target{
		Name:       device,
		Address:    dev.Address,
		Port:       dev.Port,
		Transport:  session.Transport(dev.Transport),
		Username:   dev.Username,
		Password:   password,
		KeyFile:    dev.KeyFile,
		KnownHosts: dev.KnownHosts,
		Setup:      inv.resolveDialect(dev.Dialect).Setup,
	}
	if dev.Serial != nil {
		t.SerialDevice = dev.Serial.Device
		t.BaudRate = dev.Serial.Baud
	}
	return t, nil
}

// CommandsFor returns the command set for device's dialect.
func (inv *Inventory) CommandsFor(device string) dialect.Commands {
	name := inv.Defaults.Dialect
	if dev, err := inv.Lookup(device); err == nil {
		name = dev.Dialect
	}
	return inv.resolveDialect(name)
}

// resolveDialect layers an inventory dialect over its base, or returns the
// built-in of that name. Unknown names fall back to the default dialect.
func (inv *Inventory) resolveDialect(name string) dialect.Commands {
	if dc, ok := inv.Dialects[name]; ok {
		base, ok := dialect.Lookup(dc.Base)
		if !ok {
			base, _ = dialect.Lookup(name)
		}
		return dialect.Merge(base, dc.Commands)
	}
	if c, ok := dialect.Lookup(name); ok {
		return c
	}
	c, _ := dialect.Lookup(dialect.Default)
	return c
}

// OverridePassword sets the password used for every device, replacing any
// configured password or password_env.
func (inv *Inventory) OverridePassword(password string) {
	inv.Defaults.Password = password
	inv.Defaults.PasswordEnv = ""
	for _, dev := range inv.Devices {
		dev.Password = ""
		dev.PasswordEnv = ""
	}
}

// SetDefaultDialect changes the dialect used by devices that do not name
// their own.
func (inv *Inventory) SetDefaultDialect(name string) error {
	if !inv.dialectKnown(name) {
		return fmt.Errorf("%w: unknown dialect %q", util.ErrNotFound, name)
	}
	inv.Defaults.Dialect = name
	return nil
}
