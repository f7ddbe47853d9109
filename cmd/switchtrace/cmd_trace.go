package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/switchtrace/switchtrace/pkg/cli"
	"github.com/switchtrace/switchtrace/pkg/trace"
	"github.com/switchtrace/switchtrace/pkg/util"
)

var (
	traceCSV       bool
	traceParallel  int
	traceAskPass   bool
	traceNoHistory bool
)

var traceCmd = &cobra.Command{
	Use:   "trace <ip> [ip...]",
	Short: "Trace IP addresses to their access ports",
	Long: `Trace each IP address from the root switch to the port it is attached to.

The last octet may be a range, e.g. 10.20.30.10-20 or 10.20.30.1,5,9.
Several addresses are traced concurrently (see --parallel). Every trace is
recorded in the history unless --no-history is given. The exit status is
non-zero when any trace does not succeed.

Examples:
  switchtrace -r core1 trace 10.20.30.40
  switchtrace -r core1 trace 10.20.30.40 10.20.30.41 --csv > ports.csv
  switchtrace -r core1 trace 10.20.30.1-254 -p 16 --csv > subnet.csv
  switchtrace -r core1 -i lab.yaml trace 10.20.30.40 --ask-pass --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := app.requireRoot()
		if err != nil {
			return err
		}
		inv, err := app.loadInventory()
		if err != nil {
			return err
		}
		if traceAskPass {
			if err := askPassword(inv); err != nil {
				return err
			}
		}

		var targets []string
		for _, arg := range args {
			expanded, err := util.ExpandTargets(arg)
			if err != nil {
				return err
			}
			targets = append(targets, expanded...)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		tracer := newTracer(inv, nil)
		var results []*trace.Result
		if len(targets) == 1 {
			res, err := tracer.Trace(ctx, root, targets[0])
			if res == nil {
				return err
			}
			results = []*trace.Result{res}
		} else {
			results, err = tracer.TraceMany(ctx, root, targets, traceParallel)
			if err != nil {
				util.Logger.Debugf("trace errors: %v", err)
			}
		}

		if !traceNoHistory {
			recordResults(ctx, results)
		}

		if err := printResults(results); err != nil {
			return err
		}

		for _, res := range results {
			if res == nil || res.Status != trace.StatusSuccess {
				return errIncomplete
			}
		}
		return nil
	},
}

func recordResults(ctx context.Context, results []*trace.Result) {
	store, err := app.openHistory(ctx)
	if err != nil {
		util.Warnf("Could not open history: %v", err)
		return
	}
	defer store.Close()
	record(context.WithoutCancel(ctx), store, "cli", results...)
}

func printResults(results []*trace.Result) error {
	switch {
	case traceCSV:
		return cli.WritePathCSV(os.Stdout, results)
	case app.jsonOutput:
		var out []*trace.Result
		for _, res := range results {
			if res != nil {
				out = append(out, res)
			}
		}
		if len(out) == 1 {
			return cli.WriteJSON(os.Stdout, out[0])
		}
		return cli.WriteJSON(os.Stdout, out)
	default:
		printed := 0
		for _, res := range results {
			if res == nil {
				continue
			}
			if printed > 0 {
				fmt.Println()
			}
			cli.PrintPath(os.Stdout, res)
			printed++
		}
		return nil
	}
}

func init() {
	traceCmd.Flags().BoolVar(&traceCSV, "csv", false, "Write one CSV row per hop")
	traceCmd.Flags().IntVarP(&traceParallel, "parallel", "p", 4, "Maximum concurrent traces")
	traceCmd.Flags().BoolVar(&traceAskPass, "ask-pass", false, "Prompt for the device password")
	traceCmd.Flags().BoolVar(&traceNoHistory, "no-history", false, "Do not record traces in the history")
	addOutputFlags(traceCmd)
}

// addOutputFlags registers --json on cmd.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&app.jsonOutput, "json", false, "JSON output")
}
