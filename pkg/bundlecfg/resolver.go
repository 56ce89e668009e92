// Package bundlecfg turns raw bundle-build flags into a validated, immutable
// Configuration and the definitions map handed to the build pipeline.
package bundlecfg

import (
	"path/filepath"
	"strconv"
	"strings"

	"bundler/pkg/defines"
	"bundler/pkg/platform"
)

// RawFlags carries flag values exactly as the user supplied them. Zero values
// and nil pointers mean "not specified".
type RawFlags struct {
	TrackWidgetCreation     *bool
	TreeShakeIcons          *bool
	DeferredComponents      *bool
	Pub                     *bool
	Target                  string
	TargetPlatform          string
	FileSystemScheme        string
	ManifestPath            string
	AssetDir                string
	Depfile                 string
	DartDefines             []string
	FileSystemRoots         []string
	ExtraFrontEndOptions    []string
	ExtraGenSnapshotOptions []string
	Debug                   bool
	Profile                 bool
	Release                 bool
}

// Policy answers whether a target platform may currently be built.
type Policy interface {
	IsPlatformEnabled(p platform.TargetPlatform) bool
}

// Configuration is the resolved build configuration. It is never modified
// after Resolve returns; slice accessors return copies.
type Configuration struct {
	targetPlatform          platform.TargetPlatform
	mode                    platform.BuildMode
	targetFile              string
	fileSystemScheme        string
	manifestPath            string
	assetDir                string
	depfile                 string
	encodedDefines          string
	dartDefines             []string
	fileSystemRoots         []string
	extraFrontEndOptions    []string
	extraGenSnapshotOptions []string
	trackWidgetCreation     bool
	treeShakeIcons          bool
	deferredComponents      bool
	runPub                  bool
}

// TargetPlatform is the resolved platform the bundle is built for.
func (c *Configuration) TargetPlatform() platform.TargetPlatform { return c.targetPlatform }

// Mode is the resolved build mode.
func (c *Configuration) Mode() platform.BuildMode { return c.mode }

// TargetFile is the normalized entry-point path.
func (c *Configuration) TargetFile() string { return c.targetFile }

// TrackWidgetCreation reports whether widget creation locations are tracked.
func (c *Configuration) TrackWidgetCreation() bool { return c.trackWidgetCreation }

// FileSystemScheme is the scheme of the multi-root filesystem.
func (c *Configuration) FileSystemScheme() string { return c.fileSystemScheme }

// TreeShakeIcons reports whether icon fonts are tree-shaken.
func (c *Configuration) TreeShakeIcons() bool { return c.treeShakeIcons }

// DeferredComponents reports whether deferred components are enabled.
func (c *Configuration) DeferredComponents() bool { return c.deferredComponents }

// RunPub reports whether dependencies are resolved before building.
func (c *Configuration) RunPub() bool { return c.runPub }

// ManifestPath is the project manifest the bundle is built from.
func (c *Configuration) ManifestPath() string { return c.manifestPath }

// AssetDir is the directory assets are written to.
func (c *Configuration) AssetDir() string { return c.assetDir }

// Depfile is the dependency file written by the builder.
func (c *Configuration) Depfile() string { return c.depfile }

// DartDefines returns a copy of the key=value pairs passed to the application.
func (c *Configuration) DartDefines() []string { return cloneStrings(c.dartDefines) }

// FileSystemRoots returns a copy of the multi-root filesystem roots.
func (c *Configuration) FileSystemRoots() []string { return cloneStrings(c.fileSystemRoots) }

// ExtraFrontEndOptions returns a copy of the frontend compiler options.
func (c *Configuration) ExtraFrontEndOptions() []string {
	return cloneStrings(c.extraFrontEndOptions)
}

// ExtraGenSnapshotOptions returns a copy of the gen_snapshot options.
func (c *Configuration) ExtraGenSnapshotOptions() []string {
	return cloneStrings(c.extraGenSnapshotOptions)
}

// Definitions derives the definitions map. Optional keys are omitted when
// their value would be empty.
func (c *Configuration) Definitions() Definitions {
	defs := Definitions{
		KeyBuildMode:           c.mode.String(),
		KeyTargetPlatform:      c.targetPlatform.String(),
		KeyTargetFile:          c.targetFile,
		KeyTrackWidgetCreation: strconv.FormatBool(c.trackWidgetCreation),
		KeyFileSystemScheme:    c.fileSystemScheme,
		KeyIconTreeShakerFlag:  strconv.FormatBool(c.treeShakeIcons),
		KeyDeferredComponents:  strconv.FormatBool(c.deferredComponents),
	}
	if len(c.fileSystemRoots) > 0 {
		defs[KeyFileSystemRoots] = strings.Join(c.fileSystemRoots, ",")
	}
	if c.encodedDefines != "" {
		defs[KeyDartDefines] = c.encodedDefines
	}
	if len(c.extraFrontEndOptions) > 0 {
		defs[KeyExtraFrontEndOptions] = strings.Join(c.extraFrontEndOptions, ",")
	}
	if len(c.extraGenSnapshotOptions) > 0 {
		defs[KeyExtraGenSnapshotOptions] = strings.Join(c.extraGenSnapshotOptions, ",")
	}
	return defs
}

// Resolve validates raw flags against policy and returns the configuration and
// its definitions. Nothing is returned alongside an error.
func Resolve(raw RawFlags, policy Policy) (*Configuration, Definitions, error) {
	d := DefaultValues()

	mode, err := resolveMode(raw, d)
	if err != nil {
		return nil, nil, err
	}

	target, err := resolvePlatform(raw.TargetPlatform, d)
	if err != nil {
		return nil, nil, err
	}
	if !policy.IsPlatformEnabled(target) {
		return nil, nil, &UnsupportedPlatformError{Platform: target}
	}

	cfg := &Configuration{
		targetPlatform:          target,
		mode:                    mode,
		targetFile:              normalizePath(orDefault(raw.Target, d.TargetFile)),
		trackWidgetCreation:     boolOrDefault(raw.TrackWidgetCreation, d.TrackWidgetCreation(mode)),
		fileSystemScheme:        orDefault(raw.FileSystemScheme, d.FileSystemScheme),
		fileSystemRoots:         splitCommaSeparated(raw.FileSystemRoots),
		extraFrontEndOptions:    splitCommaSeparated(raw.ExtraFrontEndOptions),
		extraGenSnapshotOptions: splitCommaSeparated(raw.ExtraGenSnapshotOptions),
		treeShakeIcons:          boolOrDefault(raw.TreeShakeIcons, d.TreeShakeIcons),
		deferredComponents:      boolOrDefault(raw.DeferredComponents, d.DeferredComponents),
		runPub:                  boolOrDefault(raw.Pub, d.RunPub),
		manifestPath:            normalizePath(orDefault(raw.ManifestPath, d.ManifestPath)),
		assetDir:                normalizePath(orDefault(raw.AssetDir, d.AssetDir)),
		depfile:                 normalizePath(orDefault(raw.Depfile, d.Depfile)),
	}

	if cfg.treeShakeIcons && mode == platform.Debug {
		return nil, nil, invalidFlag("tree-shake-icons", "icon tree shaking is not supported in debug mode")
	}

	for _, pair := range raw.DartDefines {
		key, _, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, nil, invalidFlag("dart-define", "%q is not of the form key=value", pair)
		}
	}
	token, ok, err := defines.Encode(raw.DartDefines)
	if err != nil {
		return nil, nil, invalidFlag("dart-define", "%v", err)
	}
	if ok {
		cfg.dartDefines = cloneStrings(raw.DartDefines)
		cfg.encodedDefines = token
	}

	return cfg, cfg.Definitions(), nil
}

func resolveMode(raw RawFlags, d Defaults) (platform.BuildMode, error) {
	var selected []platform.BuildMode
	if raw.Debug {
		selected = append(selected, platform.Debug)
	}
	if raw.Profile {
		selected = append(selected, platform.Profile)
	}
	if raw.Release {
		selected = append(selected, platform.Release)
	}

	switch len(selected) {
	case 0:
		return d.Mode, nil
	case 1:
		return selected[0], nil
	default:
		names := make([]string, len(selected))
		for i, m := range selected {
			names[i] = "--" + m.String()
		}
		return "", invalidFlag(selected[0].String(), "only one of %s may be specified", strings.Join(names, ", "))
	}
}

func resolvePlatform(id string, d Defaults) (platform.TargetPlatform, error) {
	switch id {
	case "":
		return d.TargetPlatform, nil
	case platform.HostID:
		p, err := platform.HostPlatform()
		if err != nil {
			return "", invalidFlag("target-platform", "%v", err)
		}
		return p, nil
	}

	p, err := platform.ParseTargetPlatform(id)
	if err != nil {
		return "", invalidFlag("target-platform", "%v", err)
	}
	return p, nil
}

// normalizePath converts a slash-separated path to the host convention.
func normalizePath(p string) string {
	return filepath.Clean(filepath.FromSlash(p))
}

// splitCommaSeparated splits every value on ",", keeping empty segments so the
// joined result reproduces the input. Empty values are skipped.
func splitCommaSeparated(values []string) []string {
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
