package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"bundler/pkg/build"
	"bundler/pkg/bundlecfg"
	"bundler/pkg/command"
	"bundler/pkg/config"
	"bundler/pkg/features"
	"bundler/pkg/logx"
	"bundler/pkg/usage"
	"bundler/pkg/version"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailed   = 1  // build collaborator failed
	exitRejected = 2  // unsupported platform, invalid flag or invalid config
	exitUsage    = 64 // malformed command line
)

const usageText = `Usage: bundler build bundle [flags]

Resolve build flags into a bundle configuration and build it.
Run 'bundler build bundle -h' for the list of flags.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode)
}

// run contains the main application logic and returns an exit code.
// This allows defers to execute before os.Exit is called.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	if len(argv) == 1 && (argv[0] == "--version" || argv[0] == "-version") {
		_, _ = fmt.Fprint(stdout, version.String("bundler"))
		return exitOK
	}
	if len(argv) < 2 || argv[0] != "build" || argv[1] != "bundle" {
		_, _ = fmt.Fprint(stderr, usageText)
		return exitUsage
	}

	args, err := parseBundleFlags(argv[2:], stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if args.ShowVersion {
		_, _ = fmt.Fprint(stdout, version.String("bundler"))
		return exitOK
	}

	if args.Verbose {
		logx.SetDebug(true)
	}

	return buildBundle(ctx, args, stdout, stderr)
}

func buildBundle(ctx context.Context, args *bundleArgs, stdout, stderr io.Writer) int {
	projectDir, err := filepath.Abs(args.ProjectDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: invalid project directory: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(projectDir)
	if err != nil {
		err = logx.Wrap(err, "load config")
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitRejected
	}

	manager := features.NewManager(cfg)
	if err := applyFeatureOverrides(manager, args); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	var sink *usage.PrometheusSink
	var sinks usage.MultiSink
	if cfg.Analytics.Enabled {
		sink = usage.NewPrometheusSink()
		sinks = append(sinks, usage.NewLogSink(), sink)

		spool, err := usage.OpenSQLiteSink(cfg.SpoolPath(projectDir))
		if err != nil {
			logx.Warnf("Usage spool disabled: %v", err)
		} else {
			defer func() { _ = spool.Close() }()
			sinks = append(sinks, spool)
		}
	}

	backend, err := selectBackend(cfg, projectDir, stdout)
	if err != nil {
		err = logx.Wrap(err, "select build backend")
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitRejected
	}

	invokerOpts := []build.InvokerOption{build.WithBuildDir(cfg.Build.OutputDir)}
	if sink != nil {
		invokerOpts = append(invokerOpts, build.WithMetrics(build.NewMetrics(sink.Registry())))
	}

	cmdOpts := command.Options{
		Policy:     manager.Snapshot(),
		Builder:    build.NewInvoker(backend, backend, invokerOpts...),
		ProjectDir: projectDir,
	}
	if cfg.Analytics.Enabled {
		cmdOpts.Metadata = usage.NewProvider(usage.NewFileInspector())
		cmdOpts.Sink = sinks
	}

	if args.Raw.Pub != nil && !*args.Raw.Pub {
		logx.Infof("Skipping dependency resolution (--no-pub)")
	}

	result, runErr := command.New(cmdOpts).Run(ctx, args.Raw)
	if result != nil {
		result.Wait()
	}
	if sink != nil && cfg.Analytics.MetricsFile != "" {
		if err := sink.WriteTextfile(resolvePath(projectDir, cfg.Analytics.MetricsFile)); err != nil {
			logx.Warnf("Failed to write metrics file: %v", err)
		}
	}

	return report(runErr, result, stdout, stderr)
}

func applyFeatureOverrides(manager *features.Manager, args *bundleArgs) error {
	for _, name := range args.EnableFeatures {
		if !features.IsKnownFeature(name) {
			return logx.Errorf("unknown feature %q", name)
		}
		manager.SetOverride(name, true)
	}
	for _, name := range args.DisableFeatures {
		if !features.IsKnownFeature(name) {
			return logx.Errorf("unknown feature %q", name)
		}
		manager.SetOverride(name, false)
	}
	return nil
}

func selectBackend(cfg *config.Config, projectDir string, stream io.Writer) (build.Backend, error) {
	registry := build.NewRegistry()
	registry.Register(build.NewDryRunBackend(stream), build.PriorityLow)
	if cfg.Build.Backend == config.BackendProcess {
		registry.Register(build.NewProcessBackend(build.NewHostExecutor(), build.ProcessOptions{
			Stream:          stream,
			PipelineCommand: cfg.Build.PipelineCommand,
			BuilderCommand:  cfg.Build.BuilderCommand,
			Dir:             projectDir,
			Timeout:         time.Duration(cfg.Build.TimeoutSec) * time.Second,
		}), build.PriorityHigh)
	}
	return registry.GetByName(cfg.Build.Backend)
}

func report(runErr error, result *command.Result, stdout, stderr io.Writer) int {
	ok, fail := "✓", "✗"
	if !isTerminal(stdout) {
		ok, fail = "OK", "FAILED"
	}

	var failure *build.BuildFailure
	switch {
	case runErr == nil:
		_, _ = fmt.Fprintf(stdout, "%s Built %s bundle for %s in %s\n",
			ok, result.Config.Mode(), result.Config.TargetPlatform(), result.Outcome.OutputDir)
		return exitOK
	case errors.Is(runErr, bundlecfg.ErrUnsupportedPlatform), errors.Is(runErr, bundlecfg.ErrInvalidFlag):
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return exitRejected
	case errors.As(runErr, &failure):
		_, _ = fmt.Fprintf(stderr, "%s Build failed: %v\n", fail, runErr)
		return exitFailed
	default:
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return exitFailed
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func resolvePath(projectDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}
