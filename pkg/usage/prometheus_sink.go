package usage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// PrometheusSink counts builds by dimension on its own registry.
type PrometheusSink struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

// NewPrometheusSink creates a sink with a fresh registry.
func NewPrometheusSink() *PrometheusSink {
	reg := prometheus.NewRegistry()
	return &PrometheusSink{
		registry: reg,
		events: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bundler_usage_events_total",
				Help: "Successful bundle builds by project type and target platform",
			},
			[]string{"is_module", "target_platform"},
		),
	}
}

// Registry exposes the sink's registry for scraping or tests.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

// Record increments the counter for dims.
func (s *PrometheusSink) Record(_ context.Context, dims Dimensions) error {
	s.events.WithLabelValues(dims.IsModule(), dims.TargetPlatform()).Inc()
	return nil
}

// WriteTextfile renders the registry in the text exposition format to path.
// The file is written to a temporary sibling and renamed so collectors never
// see a partial file.
func (s *PrometheusSink) WriteTextfile(path string) error {
	families, err := s.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather usage metrics: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to render %s: %w", mf.GetName(), err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close metrics file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move metrics file into place: %w", err)
	}
	return nil
}
