// Package metrics registers the Prometheus collectors the run subcommand
// exposes over its internal /metrics listener: the userspace-facing
// analogue of the kernel's own event/error counts, since the kernel
// program itself cannot export Prometheus metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector buildtrace registers.
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	FatalErrorsTotal *prometheus.CounterVec
	TracedProcesses  prometheus.Gauge
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildtrace",
			Name:      "events_total",
			Help:      "Events committed by the kernel tracer, by kind.",
		}, []string{"kind"}),
		FatalErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildtrace",
			Name:      "fatal_errors_total",
			Help:      "Fatal errors observed on the kernel's one-slot error map, by kind.",
		}, []string{"kind"}),
		TracedProcesses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "buildtrace",
			Name:      "traced_processes",
			Help:      "Processes currently believed live in the userspace process registry shadow.",
		}),
	}
	reg.MustRegister(m.EventsTotal, m.FatalErrorsTotal, m.TracedProcesses)
	return m
}
