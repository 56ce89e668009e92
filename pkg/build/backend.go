package build

import (
	"context"

	"bundler/pkg/platform"
)

// TaskBundle is the pipeline task that assembles a bundle.
const TaskBundle = "bundle"

// TaskRequest is one pipeline task run.
type TaskRequest struct {
	Task      string
	OutputDir string // per-configuration directory the task writes into
	Defines   map[string]string
}

// Pipeline runs a named build task against a definitions environment.
type Pipeline interface {
	RunTask(ctx context.Context, req TaskRequest) error
}

// BundleRequest is everything the bundle builder needs to package a bundle.
type BundleRequest struct {
	Platform     platform.TargetPlatform
	Mode         platform.BuildMode
	MainPath     string
	ManifestPath string
	KernelPath   string
	DepfilePath  string
	AssetDir     string
}

// BundleBuilder packages the compiled application and its assets.
type BundleBuilder interface {
	Build(ctx context.Context, req BundleRequest) error
}

// Backend supplies both collaborators for one way of running builds.
type Backend interface {
	Pipeline
	BundleBuilder

	// Name returns the backend name for logging and selection.
	Name() string
}

// BackendPriority orders backends when none is selected explicitly.
type BackendPriority int

const (
	// PriorityHigh is for backends that do real work.
	PriorityHigh BackendPriority = 100

	// PriorityLow is for fallback backends (dry run).
	PriorityLow BackendPriority = 10
)

// BackendRegistration combines a backend with its priority.
type BackendRegistration struct {
	Backend  Backend
	Priority BackendPriority
}
