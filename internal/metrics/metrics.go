// Package metrics registers the Prometheus collectors exposed at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "scans_total",
		Help:      "QR scans by outcome.",
	}, []string{"outcome"})

	Toggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "attendance_toggles_total",
		Help:      "Manual present/absent changes.",
	}, []string{"action"})

	Reports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "reports_rendered_total",
		Help:      "Reports rendered by format and delivery mode.",
	}, []string{"format", "mode"})

	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rollcall",
		Name:      "report_render_seconds",
		Help:      "Time spent loading and rendering a report.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"format"})
)

// ObserveReport records one rendered report.
func ObserveReport(format, mode string, started time.Time) {
	Reports.WithLabelValues(format, mode).Inc()
	ReportDuration.WithLabelValues(format).Observe(time.Since(started).Seconds())
}
