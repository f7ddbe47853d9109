package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/switchtrace/switchtrace/pkg/cli"
	"github.com/switchtrace/switchtrace/pkg/trace"
	"github.com/switchtrace/switchtrace/pkg/util"
)

var (
	locateRoots   string
	locateAskPass bool
)

var locateCmd = &cobra.Command{
	Use:   "locate <ip>",
	Short: "Trace an IP address from several root switches",
	Long: `Trace an IP address from each root switch in turn and stop at the first
one that finds it. Useful when the topology has several aggregation
switches and the target's side is unknown.

Roots default to the inventory's devices when neither --roots nor -r is given.

Examples:
  switchtrace locate 10.20.30.40 --roots core1,core2
  switchtrace -i site.yaml locate 10.20.30.40`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := app.loadInventory()
		if err != nil {
			return err
		}
		if locateAskPass {
			if err := askPassword(inv); err != nil {
				return err
			}
		}

		roots := util.SplitCommaSeparated(locateRoots)
		if len(roots) == 0 {
			if root := app.cfg.GetString("root"); root != "" {
				roots = []string{root}
			} else {
				roots = inv.DeviceNames()
			}
		}
		if len(roots) == 0 {
			return fmt.Errorf("no root switches: use --roots, -r, or list devices in the inventory")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		res, err := newTracer(inv, nil).Locate(ctx, roots, args[0])
		if res == nil {
			return err
		}
		recordResults(ctx, []*trace.Result{res})

		if app.jsonOutput {
			if err := cli.WriteJSON(os.Stdout, res); err != nil {
				return err
			}
		} else {
			cli.PrintPath(os.Stdout, res)
		}
		if res.Status != trace.StatusSuccess {
			return errIncomplete
		}
		return nil
	},
}

func init() {
	locateCmd.Flags().StringVar(&locateRoots, "roots", "", "Comma-separated root switches, tried in order")
	locateCmd.Flags().BoolVar(&locateAskPass, "ask-pass", false, "Prompt for the device password")
	addOutputFlags(locateCmd)
}
