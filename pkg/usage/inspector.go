package usage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ManifestFile is the project manifest read from the project root.
	ManifestFile = "pubspec.yaml"

	// MetadataFile records the template the project was created from.
	MetadataFile = ".metadata"

	projectTypeModule = "module"
)

// ProjectInspector answers questions about a project's layout.
type ProjectInspector interface {
	// IsModule reports whether the project was created from the module template.
	IsModule(root string) (bool, error)

	// Manifest returns the parsed project manifest.
	Manifest(root string) (*Manifest, error)
}

// Manifest is the subset of pubspec.yaml the bundler reads.
type Manifest struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Version     string         `yaml:"version"`
	Flutter     map[string]any `yaml:"flutter"`
}

// DeclaresModule reports whether the manifest carries a flutter.module section.
// A present key with an empty value still counts.
func (m *Manifest) DeclaresModule() bool {
	if m == nil || m.Flutter == nil {
		return false
	}
	_, ok := m.Flutter[projectTypeModule]
	return ok
}

type projectMetadata struct {
	ProjectType string `yaml:"project_type"`
}

// FileInspector reads the manifest and metadata files from disk.
type FileInspector struct{}

// NewFileInspector creates an inspector backed by the local filesystem.
func NewFileInspector() *FileInspector {
	return &FileInspector{}
}

// Manifest parses <root>/pubspec.yaml.
func (f *FileInspector) Manifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &manifest, nil
}

// IsModule checks the manifest first and falls back to .metadata.
// A missing manifest is an error; a missing .metadata is not.
func (f *FileInspector) IsModule(root string) (bool, error) {
	manifest, err := f.Manifest(root)
	if err != nil {
		return false, err
	}
	if manifest.DeclaresModule() {
		return true, nil
	}

	path := filepath.Join(root, MetadataFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var meta projectMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return meta.ProjectType == projectTypeModule, nil
}
