package probe

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records probe outcomes on a private prometheus registry
type Metrics struct {
	registry *prometheus.Registry
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastRun  prometheus.Gauge
}

// NewMetrics creates and registers the probe collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asyncprobe",
			Name:      "probe_results_total",
			Help:      "Probe executions by probe and outcome.",
		}, []string{"probe", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "asyncprobe",
			Name:      "probe_duration_seconds",
			Help:      "Probe execution time.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"probe"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "asyncprobe",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
	}
	m.registry.MustRegister(m.results, m.duration, m.lastRun)
	return m
}

// Observe records one probe result
func (m *Metrics) Observe(res Result) {
	if m == nil {
		return
	}
	outcome := "pass"
	if !res.Passed {
		outcome = "fail"
	}
	m.results.WithLabelValues(res.Name, outcome).Inc()
	m.duration.WithLabelValues(res.Name).Observe(res.Duration.Seconds())
}

// ObserveReport records the completion time of a run
func (m *Metrics) ObserveReport(report *Report) {
	if m == nil || report == nil {
		return
	}
	m.lastRun.Set(float64(report.StartedAt.Add(report.Duration).Unix()))
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for the node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
