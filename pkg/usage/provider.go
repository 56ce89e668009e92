// Package usage derives analytics dimensions from a completed bundle build
// and forwards them to one or more sinks.
package usage

import (
	"context"
	"fmt"
	"strconv"

	"bundler/pkg/bundlecfg"
	"bundler/pkg/logx"
)

// Dimension ids reported for every bundle build.
const (
	DimensionIsModule       = "command-build-bundle-is-module"
	DimensionTargetPlatform = "command-build-bundle-target-platform"
)

// Dimensions maps dimension ids to their values.
type Dimensions map[string]string

// IsModule returns the is-module dimension.
func (d Dimensions) IsModule() string { return d[DimensionIsModule] }

// TargetPlatform returns the target-platform dimension.
func (d Dimensions) TargetPlatform() string { return d[DimensionTargetPlatform] }

// MetadataComputationError wraps any failure while computing dimensions.
// It never turns a successful build into a failed command.
type MetadataComputationError struct {
	Cause error
}

func (e *MetadataComputationError) Error() string {
	return fmt.Sprintf("usage metadata: %v", e.Cause)
}

func (e *MetadataComputationError) Unwrap() error { return e.Cause }

// Provider computes usage dimensions for a resolved configuration.
type Provider struct {
	inspector ProjectInspector
	logger    *logx.Logger
}

// NewProvider creates a provider that classifies projects with inspector.
func NewProvider(inspector ProjectInspector) *Provider {
	return &Provider{
		inspector: inspector,
		logger:    logx.NewLogger("usage"),
	}
}

// ComputeUsageDimensions classifies the project at root and reads the target
// platform from cfg. The platform is never re-resolved.
func (p *Provider) ComputeUsageDimensions(ctx context.Context, cfg *bundlecfg.Configuration, root string) (Dimensions, error) {
	if err := ctx.Err(); err != nil {
		return nil, &MetadataComputationError{Cause: err}
	}
	if cfg == nil {
		return nil, &MetadataComputationError{Cause: fmt.Errorf("no resolved configuration")}
	}

	isModule, err := p.inspector.IsModule(root)
	if err != nil {
		return nil, &MetadataComputationError{Cause: err}
	}

	dims := Dimensions{
		DimensionIsModule:       strconv.FormatBool(isModule),
		DimensionTargetPlatform: cfg.TargetPlatform().String(),
	}
	p.logger.Debug("Computed dimensions: is-module=%s target-platform=%s", dims.IsModule(), dims.TargetPlatform())
	return dims, nil
}
