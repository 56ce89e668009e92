package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bundler/pkg/bundlecfg"
)

// stringList collects every occurrence of a repeatable flag in order.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// optionalBool is a boolean flag that remembers whether it was given.
type optionalBool struct {
	value *bool
}

func (o *optionalBool) String() string {
	if o == nil || o.value == nil {
		return ""
	}
	return strconv.FormatBool(*o.value)
}

func (o *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	o.value = &v
	return nil
}

func (o *optionalBool) IsBoolFlag() bool { return true }

// negatedBool is the --no-<name> spelling of an optionalBool.
type negatedBool struct {
	target *optionalBool
}

func (n negatedBool) String() string { return "" }

func (n negatedBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	v = !v
	n.target.value = &v
	return nil
}

func (n negatedBool) IsBoolFlag() bool { return true }

// bundleArgs is the parsed command line of `build bundle`.
type bundleArgs struct {
	Raw             bundlecfg.RawFlags
	ProjectDir      string
	EnableFeatures  []string
	DisableFeatures []string
	ShowVersion     bool
	Verbose         bool
}

func newBundleFlagSet(stderr io.Writer) (*flag.FlagSet, *bundleArgs, func()) {
	fs := flag.NewFlagSet("build bundle", flag.ContinueOnError)
	fs.SetOutput(stderr)

	args := &bundleArgs{}
	var (
		pub, track, treeShake, deferred optionalBool
		dartDefines, fsRoots            stringList
		frontEndOpts, genSnapshotOpts   stringList
		enableFeatures, disableFeatures stringList
	)

	fs.StringVar(&args.Raw.Target, "target", "", "Entry-point file of the application (default lib/main.dart)")
	fs.Var(&pub, "pub", "Resolve dependencies before building (default true)")
	fs.Var(negatedBool{&pub}, "no-pub", "Skip dependency resolution")
	fs.StringVar(&args.Raw.TargetPlatform, "target-platform", "", "Target platform id, or \"host\" (default android-arm)")
	fs.BoolVar(&args.Raw.Debug, "debug", false, "Build a debug bundle (default)")
	fs.BoolVar(&args.Raw.Profile, "profile", false, "Build a profile bundle")
	fs.BoolVar(&args.Raw.Release, "release", false, "Build a release bundle")
	fs.Var(&track, "track-widget-creation", "Track widget creation locations (default true in debug)")
	fs.Var(&dartDefines, "dart-define", "Additional key=value pair passed to the application (repeatable)")
	fs.StringVar(&args.Raw.FileSystemScheme, "filesystem-scheme", "", "Scheme for the multi-root filesystem (default org-dartlang-root)")
	fs.Var(&fsRoots, "filesystem-root", "Comma-separated multi-root filesystem roots (repeatable)")
	fs.Var(&frontEndOpts, "extra-front-end-options", "Comma-separated options passed to the frontend compiler")
	fs.Var(&genSnapshotOpts, "extra-gen-snapshot-options", "Comma-separated options passed to gen_snapshot")
	fs.Var(&treeShake, "tree-shake-icons", "Tree-shake icon fonts (not in debug)")
	fs.Var(&deferred, "deferred-components", "Enable deferred components")
	fs.StringVar(&args.Raw.ManifestPath, "manifest", "", "Project manifest (default pubspec.yaml)")
	fs.StringVar(&args.Raw.AssetDir, "asset-dir", "", "Asset output directory (default build/flutter_assets)")
	fs.StringVar(&args.Raw.Depfile, "depfile", "", "Dependency file path (default build/snapshot_blob.bin.d)")
	fs.StringVar(&args.ProjectDir, "project-dir", ".", "Project directory")
	fs.Var(&enableFeatures, "enable-feature", "Enable a feature for this invocation (repeatable)")
	fs.Var(&disableFeatures, "disable-feature", "Disable a feature for this invocation (repeatable)")
	fs.BoolVar(&args.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&args.Verbose, "verbose", false, "Enable debug logging (same as DEBUG=1)")

	finish := func() {
		args.Raw.Pub = pub.value
		args.Raw.TrackWidgetCreation = track.value
		args.Raw.TreeShakeIcons = treeShake.value
		args.Raw.DeferredComponents = deferred.value
		args.Raw.DartDefines = dartDefines
		args.Raw.FileSystemRoots = fsRoots
		args.Raw.ExtraFrontEndOptions = frontEndOpts
		args.Raw.ExtraGenSnapshotOptions = genSnapshotOpts
		args.EnableFeatures = enableFeatures
		args.DisableFeatures = disableFeatures
	}
	return fs, args, finish
}

// parseBundleFlags parses the arguments following `build bundle`.
func parseBundleFlags(argv []string, stderr io.Writer) (*bundleArgs, error) {
	fs, args, finish := newBundleFlagSet(stderr)
	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	finish()
	return args, nil
}
