package bundlecfg

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundler/pkg/defines"
	"bundler/pkg/features"
	"bundler/pkg/platform"
)

func boolPtr(b bool) *bool { return &b }

// allEnabled is a policy with every gate open.
var allEnabled = features.Snapshot{Windows: true, Linux: true, MacOS: true}

func TestResolveDefaults(t *testing.T) {
	cfg, defs, err := Resolve(RawFlags{TargetPlatform: "android-arm"}, features.Snapshot{})
	require.NoError(t, err)

	assert.Equal(t, Definitions{
		KeyBuildMode:           "debug",
		KeyTargetPlatform:      "android-arm",
		KeyTargetFile:          filepath.FromSlash("lib/main.dart"),
		KeyTrackWidgetCreation: "true",
		KeyFileSystemScheme:    "org-dartlang-root",
		KeyIconTreeShakerFlag:  "false",
		KeyDeferredComponents:  "false",
	}, defs)

	assert.Equal(t, platform.AndroidArm, cfg.TargetPlatform())
	assert.Equal(t, platform.Debug, cfg.Mode())
	assert.True(t, cfg.RunPub())
	assert.Equal(t, filepath.FromSlash("pubspec.yaml"), cfg.ManifestPath())
	assert.Equal(t, filepath.FromSlash("build/flutter_assets"), cfg.AssetDir())
	assert.Equal(t, filepath.FromSlash("build/snapshot_blob.bin.d"), cfg.Depfile())
	assert.Empty(t, cfg.DartDefines())
}

func TestResolveEmptyPlatformDefaultsToAndroidArm(t *testing.T) {
	cfg, _, err := Resolve(RawFlags{}, features.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, platform.AndroidArm, cfg.TargetPlatform())
}

func TestAlwaysPresentKeys(t *testing.T) {
	_, defs, err := Resolve(RawFlags{Release: true}, features.Snapshot{})
	require.NoError(t, err)

	for _, key := range AlwaysPresentKeys() {
		assert.Contains(t, defs, key)
	}
	for _, key := range []string{KeyFileSystemRoots, KeyDartDefines, KeyExtraFrontEndOptions, KeyExtraGenSnapshotOptions} {
		assert.NotContains(t, defs, key)
	}
}

func TestGatedPlatforms(t *testing.T) {
	tests := []struct {
		id      string
		enabled features.Snapshot
	}{
		{"windows-x64", features.Snapshot{Windows: true}},
		{"linux-x64", features.Snapshot{Linux: true}},
		{"linux-arm64", features.Snapshot{Linux: true}},
		{"darwin-x64", features.Snapshot{MacOS: true}},
	}

	for _, tt := range tests {
		t.Run(tt.id+" disabled", func(t *testing.T) {
			// Every other gate open; only this family is off.
			disabled := allEnabled
			switch tt.enabled {
			case features.Snapshot{Windows: true}:
				disabled.Windows = false
			case features.Snapshot{Linux: true}:
				disabled.Linux = false
			default:
				disabled.MacOS = false
			}

			cfg, defs, err := Resolve(RawFlags{TargetPlatform: tt.id}, disabled)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Nil(t, defs)

			var upe *UnsupportedPlatformError
			require.True(t, errors.As(err, &upe))
			assert.Equal(t, tt.id, upe.Platform.String())
			assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
			assert.Contains(t, err.Error(), tt.id)
		})

		t.Run(tt.id+" enabled", func(t *testing.T) {
			_, defs, err := Resolve(RawFlags{TargetPlatform: tt.id}, tt.enabled)
			require.NoError(t, err)
			assert.Equal(t, tt.id, defs[KeyTargetPlatform])
		})
	}
}

func TestGateCheckedBeforeOtherValidation(t *testing.T) {
	// A malformed define must not mask the platform rejection.
	_, _, err := Resolve(RawFlags{TargetPlatform: "linux-x64", DartDefines: []string{"nokey"}}, features.Snapshot{})
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestUngatedPlatformsIgnorePolicy(t *testing.T) {
	for _, id := range []string{"android-arm", "android-arm64", "android-x64", "android-x86", "ios"} {
		_, _, err := Resolve(RawFlags{TargetPlatform: id}, features.Snapshot{})
		assert.NoError(t, err, id)
	}
}

func TestHostPlatform(t *testing.T) {
	host, err := platform.HostPlatform()
	if err != nil {
		t.Skipf("no desktop platform for this host: %v", err)
	}

	cfg, _, err := Resolve(RawFlags{TargetPlatform: "host"}, allEnabled)
	require.NoError(t, err)
	assert.Equal(t, host, cfg.TargetPlatform())
}

func TestUnknownPlatform(t *testing.T) {
	_, _, err := Resolve(RawFlags{TargetPlatform: "fuchsia-x64"}, allEnabled)
	var ife *InvalidFlagError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, "target-platform", ife.Flag)
	assert.True(t, errors.Is(err, ErrInvalidFlag))
}

func TestBuildModes(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawFlags
		mode  platform.BuildMode
		track string
	}{
		{"default", RawFlags{}, platform.Debug, "true"},
		{"debug", RawFlags{Debug: true}, platform.Debug, "true"},
		{"profile", RawFlags{Profile: true}, platform.Profile, "false"},
		{"release", RawFlags{Release: true}, platform.Release, "false"},
		{"release with tracking", RawFlags{Release: true, TrackWidgetCreation: boolPtr(true)}, platform.Release, "true"},
		{"debug without tracking", RawFlags{TrackWidgetCreation: boolPtr(false)}, platform.Debug, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, defs, err := Resolve(tt.raw, features.Snapshot{})
			require.NoError(t, err)
			assert.Equal(t, tt.mode, cfg.Mode())
			assert.Equal(t, tt.mode.String(), defs[KeyBuildMode])
			assert.Equal(t, tt.track, defs[KeyTrackWidgetCreation])
		})
	}
}

func TestConflictingModes(t *testing.T) {
	_, _, err := Resolve(RawFlags{Debug: true, Release: true}, features.Snapshot{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFlag))
	assert.Contains(t, err.Error(), "--debug, --release")
}

func TestDartDefines(t *testing.T) {
	_, defs, err := Resolve(RawFlags{DartDefines: []string{"foo=bar"}}, features.Snapshot{})
	require.NoError(t, err)

	token, ok := defs[KeyDartDefines]
	require.True(t, ok)
	decoded, err := defines.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo=bar"}, decoded)
}

func TestDartDefinesPreserveOrder(t *testing.T) {
	pairs := []string{"z=1", "a=2", "m=x=y", "space=a b"}
	cfg, defs, err := Resolve(RawFlags{DartDefines: pairs}, features.Snapshot{})
	require.NoError(t, err)

	decoded, err := defines.Decode(defs[KeyDartDefines])
	require.NoError(t, err)
	assert.Equal(t, pairs, decoded)
	assert.Equal(t, pairs, cfg.DartDefines())
}

func TestMalformedDartDefine(t *testing.T) {
	for _, pair := range []string{"novalue", "=value", "bad\x00=1"} {
		_, _, err := Resolve(RawFlags{DartDefines: []string{"ok=1", pair}}, features.Snapshot{})
		var ife *InvalidFlagError
		require.True(t, errors.As(err, &ife), pair)
		assert.Equal(t, "dart-define", ife.Flag)
	}
}

func TestFileSystemRoots(t *testing.T) {
	_, defs, err := Resolve(RawFlags{FileSystemRoots: []string{"test1,test2"}}, features.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, "test1,test2", defs[KeyFileSystemRoots])

	cfg, defs, err := Resolve(RawFlags{FileSystemRoots: []string{"b,a", "c"}}, features.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, "b,a,c", defs[KeyFileSystemRoots])
	assert.Equal(t, []string{"b", "a", "c"}, cfg.FileSystemRoots())
}

func TestFileSystemScheme(t *testing.T) {
	_, defs, err := Resolve(RawFlags{FileSystemScheme: "multi-root"}, features.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, "multi-root", defs[KeyFileSystemScheme])
}

func TestExtraOptionsRoundTrip(t *testing.T) {
	raw := RawFlags{
		ExtraFrontEndOptions:    []string{"--enable-experiment=non-nullable,--no-sound-null-safety"},
		ExtraGenSnapshotOptions: []string{"--no-causal-async-stacks", "--lazy-async-stacks"},
	}
	cfg, defs, err := Resolve(raw, features.Snapshot{})
	require.NoError(t, err)

	assert.Equal(t, "--enable-experiment=non-nullable,--no-sound-null-safety", defs[KeyExtraFrontEndOptions])
	assert.Equal(t, "--no-causal-async-stacks,--lazy-async-stacks", defs[KeyExtraGenSnapshotOptions])
	assert.Equal(t, []string{"--no-causal-async-stacks", "--lazy-async-stacks"}, cfg.ExtraGenSnapshotOptions())
}

func TestCommaSeparatedRoundTrip(t *testing.T) {
	inputs := []string{"--a,,--b", "--a,", ",--a", "--a,--b", ","}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			cfg, defs, err := Resolve(RawFlags{
				ExtraFrontEndOptions:    []string{in},
				ExtraGenSnapshotOptions: []string{in},
				FileSystemRoots:         []string{in},
			}, features.Snapshot{})
			require.NoError(t, err)

			assert.Equal(t, in, defs[KeyExtraFrontEndOptions])
			assert.Equal(t, in, defs[KeyExtraGenSnapshotOptions])
			assert.Equal(t, in, defs[KeyFileSystemRoots])
			assert.Equal(t, strings.Split(in, ","), cfg.ExtraFrontEndOptions())
		})
	}
}

func TestEmptyCommaSeparatedValueOmitted(t *testing.T) {
	cfg, defs, err := Resolve(RawFlags{
		ExtraFrontEndOptions: []string{""},
		FileSystemRoots:      []string{"", ""},
	}, features.Snapshot{})
	require.NoError(t, err)
	assert.NotContains(t, defs, KeyExtraFrontEndOptions)
	assert.NotContains(t, defs, KeyFileSystemRoots)
	assert.Empty(t, cfg.ExtraFrontEndOptions())
}

func TestCommaSeparatedAcrossRepeatedFlags(t *testing.T) {
	_, defs, err := Resolve(RawFlags{
		ExtraFrontEndOptions: []string{"--a,", "--b"},
	}, features.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, "--a,,--b", defs[KeyExtraFrontEndOptions])
}

func TestBooleanFlags(t *testing.T) {
	_, defs, err := Resolve(RawFlags{
		Release:            true,
		TreeShakeIcons:     boolPtr(true),
		DeferredComponents: boolPtr(true),
	}, features.Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, "true", defs[KeyIconTreeShakerFlag])
	assert.Equal(t, "true", defs[KeyDeferredComponents])
}

func TestTreeShakeIconsRejectedInDebug(t *testing.T) {
	_, _, err := Resolve(RawFlags{TreeShakeIcons: boolPtr(true)}, features.Snapshot{})
	var ife *InvalidFlagError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, "tree-shake-icons", ife.Flag)
}

func TestTargetFileNormalized(t *testing.T) {
	cfg, defs, err := Resolve(RawFlags{Target: "./lib/entry/main_dev.dart"}, features.Snapshot{})
	require.NoError(t, err)
	want := filepath.Join("lib", "entry", "main_dev.dart")
	assert.Equal(t, want, cfg.TargetFile())
	assert.Equal(t, want, defs[KeyTargetFile])
}

func TestResolveIsDeterministic(t *testing.T) {
	raw := RawFlags{
		TargetPlatform:       "linux-x64",
		Profile:              true,
		DartDefines:          []string{"a=1", "b=2"},
		FileSystemRoots:      []string{"/x,/y"},
		ExtraFrontEndOptions: []string{"--foo"},
	}

	_, first, err := Resolve(raw, allEnabled)
	require.NoError(t, err)
	_, second, err := Resolve(raw, allEnabled)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestConfigurationIsNotAliased(t *testing.T) {
	raw := RawFlags{DartDefines: []string{"a=1"}, FileSystemRoots: []string{"r1"}}
	cfg, _, err := Resolve(raw, features.Snapshot{})
	require.NoError(t, err)

	raw.DartDefines[0] = "mutated=1"
	cfg.FileSystemRoots()[0] = "mutated"

	assert.Equal(t, []string{"a=1"}, cfg.DartDefines())
	assert.Equal(t, []string{"r1"}, cfg.FileSystemRoots())
}
