// Package build hands a resolved bundle configuration to the build-task
// pipeline and the bundle builder, and reports their outcome.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bundler/pkg/bundlecfg"
	"bundler/pkg/logx"
)

// Stage names the step an invocation finished in.
type Stage string

const (
	StagePipeline Stage = "pipeline"
	StageBuilder  Stage = "builder"
	StageDone     Stage = "done"
)

// DefaultBuildDir is where kernel files and per-configuration outputs are placed.
const DefaultBuildDir = "build"

// BuildFailure wraps a collaborator error with the stage it came from. The
// collaborator error is kept unchanged and reachable through Unwrap.
type BuildFailure struct {
	Cause error
	Stage Stage
}

func (e *BuildFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *BuildFailure) Unwrap() error { return e.Cause }

// Outcome is the result of one invocation.
type Outcome struct {
	// Cause is the collaborator's error exactly as returned; nil on success.
	Cause     error
	RequestID string
	Stage     Stage
	OutputDir string
	Duration  time.Duration
}

// Succeeded reports whether both collaborators succeeded.
func (o Outcome) Succeeded() bool {
	return o.Cause == nil
}

// Err returns a *BuildFailure for a failed outcome and nil otherwise.
func (o Outcome) Err() error {
	if o.Cause == nil {
		return nil
	}
	return &BuildFailure{Stage: o.Stage, Cause: o.Cause}
}

// Invoker runs the bundle task and then the bundle builder.
type Invoker struct {
	pipeline Pipeline
	builder  BundleBuilder
	metrics  *Metrics
	logger   *logx.Logger
	buildDir string
}

// InvokerOption customizes an Invoker.
type InvokerOption func(*Invoker)

// WithMetrics records every invocation in m.
func WithMetrics(m *Metrics) InvokerOption {
	return func(i *Invoker) { i.metrics = m }
}

// WithBuildDir overrides DefaultBuildDir.
func WithBuildDir(dir string) InvokerOption {
	return func(i *Invoker) { i.buildDir = dir }
}

// NewInvoker creates an invoker over the given collaborators.
func NewInvoker(pipeline Pipeline, builder BundleBuilder, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		pipeline: pipeline,
		builder:  builder,
		logger:   logx.NewLogger("build"),
		buildDir: DefaultBuildDir,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// KernelPath returns the application kernel file for a configuration.
func (i *Invoker) KernelPath(cfg *bundlecfg.Configuration) string {
	path := filepath.Join(i.buildDir, "app.dill")
	if cfg.TrackWidgetCreation() {
		path += ".track.dill"
	}
	return path
}

// OutputDir returns the per-configuration pipeline output directory.
func (i *Invoker) OutputDir(defs bundlecfg.Definitions) string {
	return filepath.Join(i.buildDir, "bundle", defs.Fingerprint())
}

// Invoke runs the pipeline's bundle task with defs in the configuration's
// output directory and, if that succeeds, the bundle builder. It stops at the
// first failure and never retries.
func (i *Invoker) Invoke(ctx context.Context, cfg *bundlecfg.Configuration, defs bundlecfg.Definitions) Outcome {
	start := time.Now()
	outcome := Outcome{
		RequestID: uuid.New().String(),
		OutputDir: i.OutputDir(defs),
	}

	i.logger.Info("Build %s: %s %s (%s)", outcome.RequestID, cfg.TargetPlatform(), cfg.Mode(), cfg.TargetFile())

	task := TaskRequest{
		Task:      TaskBundle,
		OutputDir: outcome.OutputDir,
		Defines:   defs.Clone(),
	}
	if err := i.pipeline.RunTask(ctx, task); err != nil {
		return i.finish(cfg, outcome, StagePipeline, err, start)
	}

	req := BundleRequest{
		Platform:     cfg.TargetPlatform(),
		Mode:         cfg.Mode(),
		MainPath:     cfg.TargetFile(),
		ManifestPath: cfg.ManifestPath(),
		KernelPath:   i.KernelPath(cfg),
		DepfilePath:  cfg.Depfile(),
		AssetDir:     cfg.AssetDir(),
	}
	if err := i.builder.Build(ctx, req); err != nil {
		return i.finish(cfg, outcome, StageBuilder, err, start)
	}

	return i.finish(cfg, outcome, StageDone, nil, start)
}

func (i *Invoker) finish(cfg *bundlecfg.Configuration, outcome Outcome, stage Stage, cause error, start time.Time) Outcome {
	outcome.Stage = stage
	outcome.Cause = cause
	outcome.Duration = time.Since(start)

	i.metrics.ObserveBuild(stage, cause == nil, cfg.TargetPlatform().String(), cfg.Mode().String(), outcome.Duration)

	if cause != nil {
		i.logger.Error("Build %s failed in %s after %v: %v", outcome.RequestID, stage, outcome.Duration, cause)
	} else {
		i.logger.Info("Build %s completed in %v", outcome.RequestID, outcome.Duration)
	}
	return outcome
}
