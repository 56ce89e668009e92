package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundler/pkg/build"
	"bundler/pkg/bundlecfg"
	"bundler/pkg/defines"
	"bundler/pkg/features"
	"bundler/pkg/platform"
	"bundler/pkg/usage"
)

// fakeBuilder records invocations and returns a fixed cause.
type fakeBuilder struct {
	cause   error
	configs []*bundlecfg.Configuration
	defs    []bundlecfg.Definitions
}

func (f *fakeBuilder) Invoke(_ context.Context, cfg *bundlecfg.Configuration, defs bundlecfg.Definitions) build.Outcome {
	f.configs = append(f.configs, cfg)
	f.defs = append(f.defs, defs)
	if f.cause != nil {
		return build.Outcome{Cause: f.cause, Stage: build.StagePipeline}
	}
	return build.Outcome{Stage: build.StageDone}
}

// fakeMetadata records the configuration it was given.
type fakeMetadata struct {
	err     error
	release chan struct{}
	configs []*bundlecfg.Configuration
	roots   []string
}

func (f *fakeMetadata) ComputeUsageDimensions(_ context.Context, cfg *bundlecfg.Configuration, root string) (usage.Dimensions, error) {
	if f.release != nil {
		<-f.release
	}
	f.configs = append(f.configs, cfg)
	f.roots = append(f.roots, root)
	if f.err != nil {
		return nil, f.err
	}
	return usage.Dimensions{
		usage.DimensionIsModule:       "false",
		usage.DimensionTargetPlatform: cfg.TargetPlatform().String(),
	}, nil
}

// fakeSink keeps recorded dimensions.
type fakeSink struct {
	err  error
	seen []usage.Dimensions
}

func (f *fakeSink) Record(_ context.Context, dims usage.Dimensions) error {
	f.seen = append(f.seen, dims)
	return f.err
}

type harness struct {
	builder  *fakeBuilder
	metadata *fakeMetadata
	sink     *fakeSink
}

func newCommand(policy features.Snapshot, h *harness, deferMetadata bool) *Command {
	return New(Options{
		Policy:        policy,
		Builder:       h.builder,
		Metadata:      h.metadata,
		Sink:          h.sink,
		ProjectDir:    "/work/app",
		DeferMetadata: deferMetadata,
	})
}

func newHarness() *harness {
	return &harness{builder: &fakeBuilder{}, metadata: &fakeMetadata{}, sink: &fakeSink{}}
}

func TestRunSuccess(t *testing.T) {
	h := newHarness()
	cmd := newCommand(features.Snapshot{}, h, false)

	result, err := cmd.Run(context.Background(), bundlecfg.RawFlags{TargetPlatform: "android-arm"})
	require.NoError(t, err)

	assert.Equal(t, StateMetadataComputed, result.State)
	assert.Equal(t, StateMetadataComputed, cmd.State())
	assert.NoError(t, result.MetadataErr)

	require.Len(t, h.builder.configs, 1)
	require.Len(t, h.metadata.configs, 1)
	assert.Same(t, h.builder.configs[0], h.metadata.configs[0], "metadata must see the configuration used for the build")
	assert.Same(t, result.Config, h.metadata.configs[0])
	assert.Equal(t, []string{"/work/app"}, h.metadata.roots)

	assert.Equal(t, "android-arm", result.Dimensions.TargetPlatform())
	assert.Equal(t, []usage.Dimensions{result.Dimensions}, h.sink.seen)

	assert.Equal(t, bundlecfg.Definitions{
		bundlecfg.KeyBuildMode:           "debug",
		bundlecfg.KeyTargetPlatform:      "android-arm",
		bundlecfg.KeyTargetFile:          "lib/main.dart",
		bundlecfg.KeyTrackWidgetCreation: "true",
		bundlecfg.KeyFileSystemScheme:    "org-dartlang-root",
		bundlecfg.KeyIconTreeShakerFlag:  "false",
		bundlecfg.KeyDeferredComponents:  "false",
	}, h.builder.defs[0])
}

func TestRunRejectedGatedPlatforms(t *testing.T) {
	for _, p := range []platform.TargetPlatform{platform.WindowsX64, platform.LinuxX64, platform.LinuxArm64, platform.DarwinX64} {
		t.Run(p.String(), func(t *testing.T) {
			h := newHarness()
			cmd := newCommand(features.Snapshot{}, h, false)

			result, err := cmd.Run(context.Background(), bundlecfg.RawFlags{TargetPlatform: p.String()})
			require.Error(t, err)

			var unsupported *bundlecfg.UnsupportedPlatformError
			require.True(t, errors.As(err, &unsupported))
			assert.Equal(t, p, unsupported.Platform)

			assert.Equal(t, StateRejected, result.State)
			assert.Nil(t, result.Definitions)
			assert.Empty(t, h.builder.configs, "no build after rejection")
			assert.Empty(t, h.metadata.configs, "no metadata after rejection")
			assert.Empty(t, h.sink.seen)
		})
	}
}

func TestRunEnabledGatedPlatforms(t *testing.T) {
	all := features.Snapshot{Windows: true, Linux: true, MacOS: true}
	for _, p := range []platform.TargetPlatform{platform.WindowsX64, platform.LinuxX64, platform.DarwinX64} {
		t.Run(p.String(), func(t *testing.T) {
			h := newHarness()
			result, err := newCommand(all, h, false).Run(context.Background(), bundlecfg.RawFlags{TargetPlatform: p.String()})
			require.NoError(t, err)
			assert.Equal(t, StateMetadataComputed, result.State)
			assert.Len(t, h.builder.configs, 1)
		})
	}
}

func TestRunRejectedInvalidFlag(t *testing.T) {
	h := newHarness()
	result, err := newCommand(features.Snapshot{}, h, false).Run(context.Background(), bundlecfg.RawFlags{Debug: true, Release: true})

	assert.True(t, errors.Is(err, bundlecfg.ErrInvalidFlag))
	assert.Equal(t, StateRejected, result.State)
	assert.Empty(t, h.builder.configs)
}

func TestRunBuildFailure(t *testing.T) {
	h := newHarness()
	cause := errors.New("gen_snapshot crashed")
	h.builder.cause = cause

	result, err := newCommand(features.Snapshot{}, h, false).Run(context.Background(), bundlecfg.RawFlags{})

	var failure *build.BuildFailure
	require.True(t, errors.As(err, &failure))
	assert.Same(t, cause, failure.Cause)
	assert.Equal(t, StateFailed, result.State)
	assert.Empty(t, h.metadata.configs, "no metadata after a failed build")
	assert.Empty(t, h.sink.seen)
}

func TestRunMetadataFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	h.metadata.err = &usage.MetadataComputationError{Cause: errors.New("no pubspec.yaml")}

	result, err := newCommand(features.Snapshot{}, h, false).Run(context.Background(), bundlecfg.RawFlags{})
	require.NoError(t, err)

	assert.Equal(t, StateMetadataComputed, result.State)
	assert.True(t, result.Outcome.Succeeded())
	assert.ErrorContains(t, result.MetadataErr, "no pubspec.yaml")
	assert.Empty(t, h.sink.seen)
}

func TestRunSinkFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	h.sink.err = errors.New("disk full")

	result, err := newCommand(features.Snapshot{}, h, false).Run(context.Background(), bundlecfg.RawFlags{})
	require.NoError(t, err)

	var metaErr *usage.MetadataComputationError
	assert.True(t, errors.As(result.MetadataErr, &metaErr))
}

func TestRunWithoutMetadataProvider(t *testing.T) {
	cmd := New(Options{Policy: features.Snapshot{}, Builder: &fakeBuilder{}})
	result, err := cmd.Run(context.Background(), bundlecfg.RawFlags{})
	require.NoError(t, err)
	assert.Equal(t, StateMetadataComputed, result.State)
	assert.Nil(t, result.Dimensions)
}

func TestRunDeferredMetadata(t *testing.T) {
	h := newHarness()
	h.metadata.release = make(chan struct{})
	cmd := newCommand(features.Snapshot{}, h, true)

	result, err := cmd.Run(context.Background(), bundlecfg.RawFlags{Release: true})
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, result.State, "build result is available before metadata")

	close(h.metadata.release)
	result.Wait()

	assert.Equal(t, StateMetadataComputed, result.State)
	assert.Same(t, result.Config, h.metadata.configs[0])
	assert.Len(t, h.sink.seen, 1)
}

func TestRunOnlyOnce(t *testing.T) {
	cmd := newCommand(features.Snapshot{}, newHarness(), false)
	_, err := cmd.Run(context.Background(), bundlecfg.RawFlags{})
	require.NoError(t, err)

	_, err = cmd.Run(context.Background(), bundlecfg.RawFlags{})
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestRunRequiresCollaborators(t *testing.T) {
	cmd := New(Options{})
	_, err := cmd.Run(context.Background(), bundlecfg.RawFlags{})
	assert.Error(t, err)
	assert.Equal(t, StateIdle, cmd.State())
}

func TestRunDartDefine(t *testing.T) {
	h := newHarness()
	result, err := newCommand(features.Snapshot{}, h, false).Run(context.Background(), bundlecfg.RawFlags{DartDefines: []string{"foo=bar"}})
	require.NoError(t, err)

	decoded, err := defines.Decode(result.Definitions[bundlecfg.KeyDartDefines])
	require.NoError(t, err)
	assert.Equal(t, []string{"foo=bar"}, decoded)
}
