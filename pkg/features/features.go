// Package features resolves the feature toggles that gate desktop target
// platforms, with priority: explicit override > environment > config file > default.
package features

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"bundler/pkg/config"
	"bundler/pkg/platform"
)

// Feature is a known toggle with its compiled-in default.
type Feature struct {
	Name        string
	Description string
	Default     bool
}

// Known feature flags.
var (
	WindowsDesktop = Feature{
		Name:        "enable-windows-desktop",
		Description: "Allow building for Windows desktop targets",
	}
	LinuxDesktop = Feature{
		Name:        "enable-linux-desktop",
		Description: "Allow building for Linux desktop targets",
	}
	MacOSDesktop = Feature{
		Name:        "enable-macos-desktop",
		Description: "Allow building for macOS desktop targets",
	}
)

//nolint:gochecknoglobals // Registry of known features.
var allFeatures = []Feature{WindowsDesktop, LinuxDesktop, MacOSDesktop}

// IsKnownFeature returns true if the feature name is registered.
func IsKnownFeature(name string) bool {
	for _, f := range allFeatures {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ListAll returns all known features with metadata.
func ListAll() []Feature {
	result := make([]Feature, len(allFeatures))
	copy(result, allFeatures)
	return result
}

// EnvName returns the environment variable that overrides a feature,
// e.g. BUNDLER_ENABLE_LINUX_DESKTOP.
func EnvName(name string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Snapshot is a frozen view of the platform gates for one invocation.
type Snapshot struct {
	Windows bool
	Linux   bool
	MacOS   bool
}

// IsPlatformEnabled reports whether p may be built. Platforms outside a gated
// family are always enabled.
func (s Snapshot) IsPlatformEnabled(p platform.TargetPlatform) bool {
	switch p.Family() {
	case platform.FamilyWindows:
		return s.Windows
	case platform.FamilyLinux:
		return s.Linux
	case platform.FamilyMacOS:
		return s.MacOS
	default:
		return true
	}
}

// FeatureFor returns the feature gating p, if any.
func FeatureFor(p platform.TargetPlatform) (Feature, bool) {
	switch p.Family() {
	case platform.FamilyWindows:
		return WindowsDesktop, true
	case platform.FamilyLinux:
		return LinuxDesktop, true
	case platform.FamilyMacOS:
		return MacOSDesktop, true
	default:
		return Feature{}, false
	}
}

// Manager holds feature flag state for the process.
type Manager struct {
	cfg       *config.Config
	overrides map[string]bool
	getenv    func(string) string
	mu        sync.RWMutex
}

// NewManager creates a manager backed by cfg (may be nil) and the process environment.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:       cfg,
		overrides: make(map[string]bool),
		getenv:    os.Getenv,
	}
}

// SetOverride sets an explicit override that takes precedence over every other source.
func (m *Manager) SetOverride(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[name] = enabled
}

// IsEnabled resolves a single feature.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isEnabledLocked(name)
}

func (m *Manager) isEnabledLocked(name string) bool {
	if enabled, ok := m.overrides[name]; ok {
		return enabled
	}

	if raw := m.getenv(EnvName(name)); raw != "" {
		if enabled, err := strconv.ParseBool(raw); err == nil {
			return enabled
		}
	}

	if m.cfg != nil && m.cfg.Features != nil {
		if enabled, ok := m.cfg.Features[name]; ok {
			return enabled
		}
	}

	for _, f := range allFeatures {
		if f.Name == name {
			return f.Default
		}
	}
	return false
}

// List returns all known features with their current enabled state.
func (m *Manager) List() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]bool, len(allFeatures))
	for _, f := range allFeatures {
		result[f.Name] = m.isEnabledLocked(f.Name)
	}
	return result
}

// Snapshot freezes the current platform gates. Later overrides do not affect
// a snapshot already taken.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Windows: m.isEnabledLocked(WindowsDesktop.Name),
		Linux:   m.isEnabledLocked(LinuxDesktop.Name),
		MacOS:   m.isEnabledLocked(MacOSDesktop.Name),
	}
}
