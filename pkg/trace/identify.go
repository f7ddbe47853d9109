package trace

import (
	"context"
	"errors"

	"github.com/switchtrace/switchtrace/pkg/extract"
	"github.com/switchtrace/switchtrace/pkg/util"
)

// DeviceInfo identifies a switch.
type DeviceInfo struct {
	Device       string `json:"device"`
	Hostname     string `json:"hostname,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// Identify connects to device and reads its hostname and chassis serial
// number. Values the device does not report are left empty; an error is
// returned only when the device cannot be reached or neither command runs.
func (t *Tracer) Identify(ctx context.Context, device string) (*DeviceInfo, error) {
	sess, err := t.open(ctx, device)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	cmds := t.opts.Directory.CommandsFor(device)
	info := &DeviceInfo{Device: device}

	var errs []error
	var inventory string
	if cmds.Inventory != "" {
		raw, err := t.resolver.send(ctx, sess, cmds.Inventory)
		if err != nil {
			errs = append(errs, err)
		} else {
			inventory = raw
			info.SerialNumber, _ = extract.SerialNumber(raw)
		}
	}
	if cmds.Hostname != "" {
		raw, err := t.resolver.send(ctx, sess, cmds.Hostname)
		if err != nil {
			errs = append(errs, err)
		} else {
			info.Hostname = extract.Hostname(raw)
		}
	}
	if info.Hostname == "" {
		info.Hostname = extract.Hostname(inventory)
	}

	if len(errs) > 0 && len(errs) == countNonEmpty(cmds.Inventory, cmds.Hostname) {
		return nil, errors.Join(errs...)
	}
	util.WithDevice(device).Debugf("identified as %q serial %q", info.Hostname, info.SerialNumber)
	return info, nil
}

func countNonEmpty(ss ...string) int {
	n := 0
	for _, s := range ss {
		if s != "" {
			n++
		}
	}
	return n
}
