package trace

import (
	"context"
	"errors"
	"time"

	"github.com/switchtrace/switchtrace/pkg/dialect"
	"github.com/switchtrace/switchtrace/pkg/extract"
	"github.com/switchtrace/switchtrace/pkg/session"
	"github.com/switchtrace/switchtrace/pkg/util"
)

// Resolver decides, for one switch, whether the target ends there or
// continues to a neighbor.
type Resolver struct {
	// CommandTimeout bounds each command. Zero means no per-command limit
	// beyond the caller's context.
	CommandTimeout time.Duration

	// CarryHardwareAddr lets a switch with no address-resolution entry for
	// the target reuse the address learned at the previous hop.
	CarryHardwareAddr bool

	// LearnHostname runs the dialect's hostname command once per switch.
	LearnHostname bool

	Recorder Recorder
}

// Resolve runs the address-resolution, forwarding-table and neighbor
// queries on sess for ip. hint is the address learned upstream and is only
// used when CarryHardwareAddr is set.
//
// A NotFound outcome is returned with a nil error. The error is non-nil only
// when a command could not be completed.
//
// A neighbor whose address equals ip is the endpoint itself (a phone or
// router speaking the discovery protocol), so that hop is Terminated rather
// than Forwarded and the trace never dials the target.
func (r *Resolver) Resolve(ctx context.Context, sess session.Session, cmds dialect.Commands, ip string, hint extract.HardwareAddr) (HopOutcome, error) {
	log := util.WithDevice(sess.Device()).WithField("target", ip)
	out := HopOutcome{Kind: OutcomeNotFound}

	if r.LearnHostname && cmds.Hostname != "" {
		raw, err := r.send(ctx, sess, cmds.Hostname)
		if err != nil {
			log.Debugf("hostname lookup failed: %v", err)
		} else {
			out.Hostname = extract.Hostname(raw)
		}
	}

	raw, err := r.send(ctx, sess, dialect.Expand(cmds.ARP, dialect.Vars{IP: ip}))
	if err != nil {
		return out, err
	}
	hw, ok := extract.HardwareAddrForIP(raw, ip)
	if !ok {
		if !r.CarryHardwareAddr || hint.IsZero() {
			log.Debugf("no address-resolution entry")
			return out, nil
		}
		log.Debugf("no address-resolution entry, using %s from previous hop", hint)
		hw = hint
	}
	out.HardwareAddr = hw

	raw, err = r.send(ctx, sess, dialect.Expand(cmds.ForwardingTable, dialect.Vars{
		IP:        ip,
		MAC:       hw.String(),
		MACDotted: hw.Dotted(),
	}))
	if err != nil {
		return out, err
	}
	entry, ok := extract.ForwardingEntryFor(raw, hw)
	if !ok {
		log.Debugf("%s not in forwarding table", hw)
		return out, nil
	}
	out.Entry = entry

	raw, err = r.send(ctx, sess, dialect.Expand(cmds.NeighborDetail, dialect.Vars{
		IP:        ip,
		MAC:       hw.String(),
		MACDotted: hw.Dotted(),
		Port:      entry.Port,
	}))
	if err != nil {
		return out, err
	}
	neighbor, ok := extract.NeighborIPForPort(raw, entry.Port)
	// A discovery-speaking endpoint (phone, router) reports itself as the
	// neighbor; that is still the end of the path.
	if !ok || neighbor == ip {
		out.Kind = OutcomeTerminated
		return out, nil
	}

	out.Kind = OutcomeForwarded
	out.Neighbor = neighbor
	return out, nil
}

func (r *Resolver) send(ctx context.Context, sess session.Session, cmd string) (string, error) {
	if r.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CommandTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := sess.Send(ctx, cmd)
	elapsed := time.Since(start)

	if r.Recorder != nil {
		r.Recorder.CommandFinished(sess.Device(), elapsed, err)
	}
	util.WithDevice(sess.Device()).Debugf("%q returned %d bytes in %v", cmd, len(raw), elapsed.Round(time.Millisecond))

	if err != nil {
		var cmdErr *util.CommandError
		if errors.As(err, &cmdErr) {
			return raw, err
		}
		return raw, util.NewCommandError(sess.Device(), cmd, err)
	}
	return raw, nil
}
