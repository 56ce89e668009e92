package build

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// ProcessBackend runs external commands for the pipeline and the bundle builder.
type ProcessBackend struct {
	exec            Executor
	stream          io.Writer
	pipelineCommand []string
	builderCommand  []string
	dir             string
	timeout         time.Duration
}

// ProcessOptions configures a ProcessBackend.
type ProcessOptions struct {
	Stream          io.Writer
	PipelineCommand []string
	BuilderCommand  []string
	Dir             string        // working directory for both commands
	Timeout         time.Duration // per command; zero means none
}

// NewProcessBackend creates a process backend running through exec.
func NewProcessBackend(exec Executor, opts ProcessOptions) *ProcessBackend {
	stream := opts.Stream
	if stream == nil {
		stream = io.Discard
	}
	return &ProcessBackend{
		exec:            exec,
		stream:          stream,
		pipelineCommand: opts.PipelineCommand,
		builderCommand:  opts.BuilderCommand,
		dir:             opts.Dir,
		timeout:         opts.Timeout,
	}
}

// Name returns the backend name.
func (p *ProcessBackend) Name() string {
	return "process"
}

// RunTask invokes the pipeline command as
// <pipeline_command> [--output <dir>] -d key=value ... <task>, keys sorted.
func (p *ProcessBackend) RunTask(ctx context.Context, req TaskRequest) error {
	keys := make([]string, 0, len(req.Defines))
	for k := range req.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	argv := append([]string(nil), p.pipelineCommand...)
	if req.OutputDir != "" {
		argv = append(argv, "--output", req.OutputDir)
	}
	for _, k := range keys {
		argv = append(argv, "-d", k+"="+req.Defines[k])
	}
	argv = append(argv, req.Task)

	return p.run(ctx, argv)
}

// Build invokes the builder command with one --flag=value per request field.
func (p *ProcessBackend) Build(ctx context.Context, req BundleRequest) error {
	argv := append([]string(nil), p.builderCommand...)
	argv = append(argv,
		"--target-platform="+req.Platform.String(),
		"--mode="+req.Mode.String(),
		"--main="+req.MainPath,
		"--manifest="+req.ManifestPath,
		"--kernel="+req.KernelPath,
		"--depfile="+req.DepfilePath,
		"--asset-dir="+req.AssetDir,
	)
	return p.run(ctx, argv)
}

func (p *ProcessBackend) run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command configured")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	_, _ = fmt.Fprintf(p.stream, "$ %s\n", strings.Join(argv, " "))

	exitCode, err := p.exec.Run(ctx, argv, ExecOpts{
		Dir:    p.dir,
		Stdout: p.stream,
		Stderr: p.stream,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	if exitCode != 0 {
		return fmt.Errorf("%s exited with code %d", argv[0], exitCode)
	}
	return nil
}
