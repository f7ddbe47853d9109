package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/switchtrace/switchtrace/pkg/cli"
	"github.com/switchtrace/switchtrace/pkg/history"
	"github.com/switchtrace/switchtrace/pkg/trace"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past traces",
	Long: `View traces recorded by earlier runs and by the API server.

History is kept in ~/.switchtrace/history.jsonl, or in Redis when --redis
(or the redis_addr setting) is given.

Examples:
  switchtrace history list --target 10.20.30.40
  switchtrace history list --device leaf3 --last 24h
  switchtrace history list --status loop_detected`,
}

var (
	historyTarget string
	historyDevice string
	historyStatus string
	historyLast   string
	historyLimit  int
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded traces, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := history.Filter{
			Target: historyTarget,
			Device: historyDevice,
			Limit:  historyLimit,
		}
		if historyStatus != "" {
			st, err := trace.ParseStatus(historyStatus)
			if err != nil {
				return err
			}
			filter.Status = st
		}
		if historyLast != "" {
			d, err := time.ParseDuration(historyLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", historyLast)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		store, err := app.openHistory(cmd.Context())
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()

		records, err := store.Query(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("querying history: %w", err)
		}

		if app.jsonOutput {
			return cli.WriteJSON(os.Stdout, records)
		}
		if len(records) == 0 {
			fmt.Println("No traces found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "SOURCE", "TARGET", "ROOT", "STATUS", "ENDPOINT")
		for _, r := range records {
			endpoint := "-"
			if end, ok := r.Result.Endpoint(); ok {
				endpoint = end.Device + " " + end.Port
			}
			t.Row(
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				r.User,
				r.Source,
				r.Result.Target,
				r.Result.Root,
				cli.StatusColor(r.Result.Status),
				endpoint,
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	historyListCmd.Flags().StringVar(&historyTarget, "target", "", "Filter by target IP")
	historyListCmd.Flags().StringVar(&historyDevice, "device", "", "Filter by root or hop device")
	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by status")
	historyListCmd.Flags().StringVar(&historyLast, "last", "", "Show traces from last duration (e.g., 24h)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 100, "Maximum traces to show")
	addOutputFlags(historyListCmd)

	historyCmd.AddCommand(historyListCmd)
}
