package bundlecfg

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Definition keys handed to the build pipeline.
const (
	KeyBuildMode               = "build-mode"
	KeyTargetPlatform          = "target-platform"
	KeyTargetFile              = "target-file"
	KeyTrackWidgetCreation     = "track-widget-creation"
	KeyFileSystemScheme        = "filesystem-scheme"
	KeyFileSystemRoots         = "filesystem-roots"
	KeyDartDefines             = "dart-defines"
	KeyExtraFrontEndOptions    = "extra-front-end-options"
	KeyExtraGenSnapshotOptions = "extra-gen-snapshot-options"
	KeyIconTreeShakerFlag      = "icon-tree-shaker-flag"
	KeyDeferredComponents      = "deferred-components"
)

// AlwaysPresentKeys lists the keys that appear in every definitions map.
func AlwaysPresentKeys() []string {
	return []string{
		KeyBuildMode,
		KeyTargetPlatform,
		KeyTargetFile,
		KeyTrackWidgetCreation,
		KeyFileSystemScheme,
		KeyIconTreeShakerFlag,
		KeyDeferredComponents,
	}
}

// Definitions is the canonical string-keyed configuration for the build pipeline.
type Definitions map[string]string

// Keys returns the keys in sorted order.
func (d Definitions) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (d Definitions) Clone() Definitions {
	out := make(Definitions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Fingerprint returns a stable 16-hex-digit digest of the map contents.
// Equal maps always produce equal fingerprints regardless of insertion order.
func (d Definitions) Fingerprint() string {
	h := xxhash.New()
	for _, k := range d.Keys() {
		_, _ = h.WriteString(k)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(d[k])
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
