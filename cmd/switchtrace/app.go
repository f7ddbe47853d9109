package main

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"golang.org/x/term"

	"github.com/switchtrace/switchtrace/pkg/history"
	"github.com/switchtrace/switchtrace/pkg/inventory"
	"github.com/switchtrace/switchtrace/pkg/session"
	"github.com/switchtrace/switchtrace/pkg/trace"
	"github.com/switchtrace/switchtrace/pkg/util"
)

const (
	historyMaxSize    = 10 * 1024 * 1024 // 10MB
	historyMaxBackups = 10
	redisHistoryMax   = 10000
)

// loadInventory reads the inventory named by -i, or returns an empty one
// that reaches every device by its own name.
func (a *App) loadInventory() (*inventory.Inventory, error) {
	var inv *inventory.Inventory
	if path := a.cfg.GetString("inventory"); path != "" {
		var err error
		inv, err = inventory.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		inv = inventory.New()
	}

	if name := a.cfg.GetString("dialect"); name != "" {
		if err := inv.SetDefaultDialect(name); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// newTracer builds a tracer over an SSH/serial dialer configured by inv.
func newTracer(inv *inventory.Inventory, rec trace.Recorder) *trace.Tracer {
	dialer := session.NewDialer(inv, inv.Trace.ConnectTimeout, inv.Trace.Retry)
	return trace.New(dialer, trace.Options{
		CommandTimeout:    inv.Trace.CommandTimeout,
		ConnectTimeout:    inv.Trace.ConnectTimeout,
		MaxHops:           inv.Trace.MaxHops,
		CarryHardwareAddr: inv.Trace.CarryHardwareAddress,
		LearnHostname:     inv.Trace.LearnHostname,
		Directory:         inv,
		Recorder:          rec,
	})
}

// openHistory opens the Redis history when --redis is set, otherwise the
// local history file.
func (a *App) openHistory(ctx context.Context) (history.Store, error) {
	if addr := a.cfg.GetString("redis"); addr != "" {
		return history.NewRedisStore(ctx, addr, history.DefaultRedisKey, redisHistoryMax)
	}
	return history.NewFileStore(a.settings.GetHistoryPath(), history.RotationConfig{
		MaxSize:    historyMaxSize,
		MaxBackups: historyMaxBackups,
	})
}

// requireRoot returns the root switch from -r, SWITCHTRACE_ROOT or settings.
func (a *App) requireRoot() (string, error) {
	root := a.cfg.GetString("root")
	if root == "" {
		return "", fmt.Errorf("root switch required: use -r <switch> flag or 'switchtrace settings set default_root <switch>'")
	}
	return root, nil
}

// askPassword reads a password from the terminal without echo and applies
// it to every device in inv.
func askPassword(inv *inventory.Inventory) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("--ask-pass requires a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	inv.OverridePassword(string(pw))
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// record appends results to the history store, logging but not failing on
// store errors.
func record(ctx context.Context, store history.Store, source string, results ...*trace.Result) {
	user := currentUser()
	for _, res := range results {
		if res == nil {
			continue
		}
		if err := store.Append(ctx, history.NewRecord(user, source, res)); err != nil {
			util.Warnf("Could not record trace of %s: %v", res.Target, err)
		}
	}
}
