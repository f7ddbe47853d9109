// Package metrics exposes trace activity as Prometheus collectors and sets
// up the OpenTelemetry tracer provider used for per-trace spans.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/switchtrace/switchtrace/pkg/trace"
)

const namespace = "switchtrace"

var _ trace.Recorder = (*Recorder)(nil)

// NewRegistry returns a registry carrying the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// Recorder records trace, session and command activity.
type Recorder struct {
	traces          *prometheus.CounterVec
	traceHops       prometheus.Histogram
	traceDuration   *prometheus.HistogramVec
	sessions        *prometheus.CounterVec
	commands        *prometheus.CounterVec
	commandDuration prometheus.Histogram
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		traces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traces_total",
			Help:      "Finished traces by final status.",
		}, []string{"status"}),
		traceHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trace_hops",
			Help:      "Number of hops in a finished trace.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8, 12, 16, 32},
		}),
		traceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trace_duration_seconds",
			Help:      "Wall time of a finished trace.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"status"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Device sessions opened, by result.",
		}, []string{"result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands sent to devices, by result.",
		}, []string{"result"}),
		commandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from sending a command to receiving its output.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	reg.MustRegister(
		r.traces,
		r.traceHops,
		r.traceDuration,
		r.sessions,
		r.commands,
		r.commandDuration,
	)
	return r
}

// TraceFinished implements trace.Recorder.
func (r *Recorder) TraceFinished(res *trace.Result) {
	if res == nil {
		return
	}
	status := string(res.Status)
	r.traces.WithLabelValues(status).Inc()
	r.traceHops.Observe(float64(len(res.Path)))
	r.traceDuration.WithLabelValues(status).Observe(res.Duration.Seconds())
}

// SessionOpened implements trace.Recorder.
func (r *Recorder) SessionOpened(_ string, err error) {
	r.sessions.WithLabelValues(result(err)).Inc()
}

// CommandFinished implements trace.Recorder.
func (r *Recorder) CommandFinished(_ string, elapsed time.Duration, err error) {
	r.commands.WithLabelValues(result(err)).Inc()
	r.commandDuration.Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
