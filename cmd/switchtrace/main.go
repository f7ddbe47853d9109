// Switchtrace - find the switch port an IP address is attached to
//
// Starting from a root switch, switchtrace resolves the target IP to a
// hardware address, finds the port that address was learned on, and follows
// discovery-protocol neighbors from switch to switch until it reaches the
// access port.
//
// Context flags:
//
//	-i, --inventory  Inventory file (or set default via: switchtrace settings set default_inventory <path>)
//	-r, --root       Root switch (or set default via: switchtrace settings set default_root <name>)
//
// Every context flag can also be set from the environment as SWITCHTRACE_<FLAG>,
// e.g. SWITCHTRACE_ROOT=core1.
//
// Examples:
//
//	switchtrace -r core1 trace 10.20.30.40
//	switchtrace -r core1 trace 10.20.30.40 10.20.30.41 --csv
//	switchtrace locate 10.20.30.40 --roots core1,core2
//	switchtrace identify leaf3
//	switchtrace history list --last 24h --status not_found
//	switchtrace serve --listen :8080
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/switchtrace/switchtrace/pkg/metrics"
	"github.com/switchtrace/switchtrace/pkg/settings"
	"github.com/switchtrace/switchtrace/pkg/util"
	"github.com/switchtrace/switchtrace/pkg/version"
)

// App holds shared state for all commands.
type App struct {
	cfg      *viper.Viper
	settings *settings.Settings

	verbose    bool
	logJSON    bool
	jsonOutput bool

	shutdownTracing metrics.ShutdownFunc
}

var app = &App{cfg: viper.New()}

// errIncomplete marks a run whose results were already printed but where at
// least one trace did not succeed. main exits non-zero without printing it.
var errIncomplete = errors.New("incomplete")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errIncomplete) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "switchtrace",
	Short:             "Find the switch port an IP address is attached to",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Switchtrace follows an IP address through a chain of managed switches,
from a root switch to the access port the endpoint is attached to.

  switchtrace -r <root> trace <ip> [ip...]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if app.verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if app.logJSON {
			util.SetJSONFormat()
		}

		if isSettingsOrHelp(cmd) {
			return nil
		}

		var err error
		app.settings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			app.settings = &settings.Settings{}
		}
		app.applySettings()

		tc := metrics.TracingConfig{
			Exporter: metrics.Exporter(app.cfg.GetString("tracing.exporter")),
			URL:      app.cfg.GetString("tracing.url"),
			Insecure: app.cfg.GetBool("tracing.insecure"),
		}
		app.shutdownTracing, err = metrics.InitTracing(cmd.Context(), tc, version.Version)
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.shutdownTracing == nil {
			return nil
		}
		return app.shutdownTracing(context.Background())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()

	// Context flags
	pf.StringP("inventory", "i", "", "Inventory file")
	pf.StringP("root", "r", "", "Root switch to start tracing from")
	pf.String("dialect", "", "Command dialect for devices without one")
	pf.String("redis", "", "Redis address for shared trace history")

	// Span export
	pf.String("tracing-exporter", "none", "Span exporter: none, stdout, otlp-http, otlp-grpc")
	pf.String("tracing-url", "", "Collector URL for the otlp exporters")
	pf.Bool("tracing-insecure", false, "Disable TLS to the collector")

	// Option flags
	pf.BoolVarP(&app.verbose, "verbose", "v", false, "Verbose output")
	pf.BoolVar(&app.logJSON, "log-json", false, "Log as JSON")

	for key, flag := range map[string]string{
		"inventory":        "inventory",
		"root":             "root",
		"dialect":          "dialect",
		"redis":            "redis",
		"tracing.exporter": "tracing-exporter",
		"tracing.url":      "tracing-url",
		"tracing.insecure": "tracing-insecure",
	} {
		if err := app.cfg.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	app.cfg.SetEnvPrefix("switchtrace")
	app.cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	app.cfg.AutomaticEnv()

	rootCmd.AddGroup(
		&cobra.Group{ID: "trace", Title: "Tracing:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{traceCmd, locateCmd, identifyCmd, historyCmd, serveCmd} {
		cmd.GroupID = "trace"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, dialectsCmd, portsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

// applySettings fills config keys that neither a flag nor the environment
// set from the settings file.
func (a *App) applySettings() {
	s := a.settings
	for key, value := range map[string]string{
		"inventory": s.DefaultInventory,
		"root":      s.DefaultRoot,
		"dialect":   s.Dialect,
		"redis":     s.RedisAddr,
	} {
		if value != "" {
			a.cfg.SetDefault(key, value)
		}
	}
}

func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "help", "version", "dialects", "ports":
			return true
		}
	}
	return false
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String("switchtrace"))
	},
}
