package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/switchtrace/switchtrace/pkg/cli"
	"github.com/switchtrace/switchtrace/pkg/trace"
)

var identifyAskPass bool

var identifyCmd = &cobra.Command{
	Use:   "identify <device> [device...]",
	Short: "Show a switch's hostname and serial number",
	Long: `Connect to each device and read its hostname and chassis serial number.

Examples:
  switchtrace identify core1
  switchtrace identify 10.0.0.2 10.0.0.3 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := app.loadInventory()
		if err != nil {
			return err
		}
		if identifyAskPass {
			if err := askPassword(inv); err != nil {
				return err
			}
		}
		tracer := newTracer(inv, nil)

		var infos []*trace.DeviceInfo
		failed := false
		for _, device := range args {
			info, err := tracer.Identify(cmd.Context(), device)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %s\n", device, cli.Red(err.Error()))
				failed = true
				continue
			}
			infos = append(infos, info)
		}

		if app.jsonOutput {
			if err := cli.WriteJSON(os.Stdout, infos); err != nil {
				return err
			}
		} else {
			for _, info := range infos {
				fmt.Println(cli.Bold(info.Device))
				fmt.Printf("  %s %s\n", cli.DotPad("Hostname", 20), orNotReported(info.Hostname))
				fmt.Printf("  %s %s\n", cli.DotPad("Serial number", 20), orNotReported(info.SerialNumber))
			}
		}

		if failed {
			return errIncomplete
		}
		return nil
	},
}

func orNotReported(s string) string {
	if s == "" {
		return cli.Dim("(not reported)")
	}
	return s
}

func init() {
	identifyCmd.Flags().BoolVar(&identifyAskPass, "ask-pass", false, "Prompt for the device password")
	addOutputFlags(identifyCmd)
}
