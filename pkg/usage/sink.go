package usage

import (
	"context"
	"errors"

	"bundler/pkg/logx"
)

// Sink accepts the dimensions of one build.
type Sink interface {
	Record(ctx context.Context, dims Dimensions) error
}

// LogSink writes dimensions to the log.
type LogSink struct {
	logger *logx.Logger
}

// NewLogSink creates a sink logging under the "analytics" component.
func NewLogSink() *LogSink {
	return &LogSink{logger: logx.NewLogger("analytics")}
}

// Record logs the dimensions at info level.
func (s *LogSink) Record(_ context.Context, dims Dimensions) error {
	s.logger.Info("bundle build: is-module=%s target-platform=%s", dims.IsModule(), dims.TargetPlatform())
	return nil
}

// MultiSink fans dimensions out to every sink. A failing sink does not stop
// the others.
type MultiSink []Sink

// Record forwards dims to each sink and joins the failures.
func (m MultiSink) Record(ctx context.Context, dims Dimensions) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Record(ctx, dims); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
