package build

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records build outcomes.
type Metrics struct {
	buildsTotal   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
}

// NewMetrics registers build metrics with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundler_builds_total",
				Help: "Bundle builds by the stage they finished in and status",
			},
			[]string{"stage", "status", "target_platform", "mode"},
		),
		buildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bundler_build_duration_seconds",
				Help:    "Duration of bundle builds in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target_platform", "mode"},
		),
	}
}

// ObserveBuild records one finished invocation.
func (m *Metrics) ObserveBuild(stage Stage, success bool, targetPlatform, mode string, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.buildsTotal.WithLabelValues(string(stage), status, targetPlatform, mode).Inc()
	m.buildDuration.WithLabelValues(targetPlatform, mode).Observe(duration.Seconds())
}
