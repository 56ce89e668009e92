package build

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// DryRunBackend reports what would be built without running anything.
type DryRunBackend struct {
	stream io.Writer
}

// NewDryRunBackend creates a dry-run backend that writes its report to stream.
func NewDryRunBackend(stream io.Writer) *DryRunBackend {
	if stream == nil {
		stream = io.Discard
	}
	return &DryRunBackend{stream: stream}
}

// Name returns the backend name.
func (d *DryRunBackend) Name() string {
	return "dry-run"
}

// RunTask prints the task, its output directory and its definitions in key order.
func (d *DryRunBackend) RunTask(ctx context.Context, req TaskRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys := make([]string, 0, len(req.Defines))
	for k := range req.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	_, _ = fmt.Fprintf(d.stream, "task %s\n", req.Task)
	if req.OutputDir != "" {
		_, _ = fmt.Fprintf(d.stream, "  output:   %s\n", req.OutputDir)
	}
	for _, k := range keys {
		_, _ = fmt.Fprintf(d.stream, "  -d %s=%s\n", k, req.Defines[k])
	}
	return nil
}

// Build prints the bundle request.
func (d *DryRunBackend) Build(ctx context.Context, req BundleRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(d.stream, "bundle %s (%s)\n", req.Platform, req.Mode)
	_, _ = fmt.Fprintf(d.stream, "  main:     %s\n", req.MainPath)
	_, _ = fmt.Fprintf(d.stream, "  manifest: %s\n", req.ManifestPath)
	_, _ = fmt.Fprintf(d.stream, "  kernel:   %s\n", req.KernelPath)
	_, _ = fmt.Fprintf(d.stream, "  depfile:  %s\n", req.DepfilePath)
	_, _ = fmt.Fprintf(d.stream, "  assets:   %s\n", req.AssetDir)
	return nil
}
