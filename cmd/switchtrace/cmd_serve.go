package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/switchtrace/switchtrace/pkg/api"
	"github.com/switchtrace/switchtrace/pkg/metrics"
	"github.com/switchtrace/switchtrace/pkg/util"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve traces and history over HTTP",
	Long: `Run the HTTP API.

Endpoints:
  GET  /healthz
  POST /v1/traces    {"root": "core1", "target": "10.20.30.40"}
  GET  /v1/traces    ?target=&device=&status=&since=&until=&limit=&offset=
  GET  /metrics      Prometheus metrics

Examples:
  switchtrace -i site.yaml -r core1 serve --listen :8080
  switchtrace serve --redis localhost:6379 --tracing-exporter otlp-http --tracing-url http://collector:4318`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.verbose {
			util.SetLogLevel("info")
		}
		inv, err := app.loadInventory()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := app.openHistory(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		registry := metrics.NewRegistry()
		recorder := metrics.NewRecorder(registry)

		srv := api.NewServer(api.Config{
			Runner:      newTracer(inv, recorder),
			History:     store,
			Gatherer:    registry,
			DefaultRoot: app.cfg.GetString("root"),
		})
		util.Logger.Infof("Serving %d inventory devices", len(inv.DeviceNames()))
		return srv.ListenAndServe(ctx, serveListen)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", ":8080", "Listen address")
}
