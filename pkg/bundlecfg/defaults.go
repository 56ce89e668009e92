package bundlecfg

import "bundler/pkg/platform"

// Defaults enumerates the value every field takes when its flag is absent.
// It is the only place defaults are defined.
type Defaults struct {
	TargetPlatform     platform.TargetPlatform
	Mode               platform.BuildMode
	TargetFile         string
	FileSystemScheme   string
	ManifestPath       string
	AssetDir           string
	Depfile            string
	TreeShakeIcons     bool
	DeferredComponents bool
	RunPub             bool
}

// DefaultValues returns the defaulting table.
func DefaultValues() Defaults {
	return Defaults{
		TargetPlatform:     platform.AndroidArm,
		Mode:               platform.Debug,
		TargetFile:         "lib/main.dart",
		FileSystemScheme:   "org-dartlang-root",
		ManifestPath:       "pubspec.yaml",
		AssetDir:           "build/flutter_assets",
		Depfile:            "build/snapshot_blob.bin.d",
		TreeShakeIcons:     false,
		DeferredComponents: false,
		RunPub:             true,
	}
}

// TrackWidgetCreation is the default for the track-widget-creation flag,
// which depends on the resolved mode: on for debug builds only.
func (d Defaults) TrackWidgetCreation(mode platform.BuildMode) bool {
	return mode == platform.Debug
}
