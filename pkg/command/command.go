// Package command composes resolution, build and usage metadata into one
// `build bundle` invocation driven by an explicit state machine.
package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bundler/pkg/build"
	"bundler/pkg/bundlecfg"
	"bundler/pkg/logx"
	"bundler/pkg/usage"
)

const logDomain = "command"

// ErrAlreadyRun is returned when Run is called twice on one Command.
var ErrAlreadyRun = errors.New("command has already run")

// Builder runs the bundle build for a resolved configuration.
type Builder interface {
	Invoke(ctx context.Context, cfg *bundlecfg.Configuration, defs bundlecfg.Definitions) build.Outcome
}

// MetadataProvider computes usage dimensions after a successful build.
type MetadataProvider interface {
	ComputeUsageDimensions(ctx context.Context, cfg *bundlecfg.Configuration, root string) (usage.Dimensions, error)
}

// Options wires the collaborators of one invocation.
type Options struct {
	// Policy is the feature snapshot taken before resolution. Required.
	Policy bundlecfg.Policy
	// Builder runs the build. Required.
	Builder Builder
	// Metadata computes usage dimensions. Nil skips metadata.
	Metadata MetadataProvider
	// Sink receives the dimensions. Nil discards them.
	Sink usage.Sink
	// ProjectDir is the root inspected for usage metadata.
	ProjectDir string
	// DeferMetadata computes metadata in the background; call Result.Wait.
	DeferMetadata bool
}

// Result is everything one invocation produced. With deferred metadata,
// State, Dimensions and MetadataErr are only settled once Wait returns.
type Result struct {
	State       State
	Config      *bundlecfg.Configuration
	Definitions bundlecfg.Definitions
	Outcome     build.Outcome
	Dimensions  usage.Dimensions
	MetadataErr error

	done chan struct{}
}

// Wait blocks until metadata computation has finished.
func (r *Result) Wait() {
	if r.done != nil {
		<-r.done
	}
}

// Command is a single `build bundle` invocation.
type Command struct {
	opts   Options
	logger *logx.Logger

	mu    sync.Mutex
	state State
}

// New creates a command in StateIdle.
func New(opts Options) *Command {
	return &Command{
		opts:   opts,
		logger: logx.NewLogger("command"),
		state:  StateIdle,
	}
}

// State returns the current state.
func (c *Command) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Command) transition(ctx context.Context, to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !IsValidTransition(c.state, to) {
		return fmt.Errorf("invalid state transition from %s to %s", c.state, to)
	}
	logx.DebugState(ctx, logDomain, "transition", string(to), "from "+string(c.state))
	c.state = to
	return nil
}

// Run resolves raw, builds, and then computes usage metadata. It returns an
// error only when resolution is rejected or the build fails; metadata errors
// are reported on Result.MetadataErr.
func (c *Command) Run(ctx context.Context, raw bundlecfg.RawFlags) (*Result, error) {
	ctx = context.WithValue(ctx, logx.ComponentKey, "command")

	if c.opts.Policy == nil || c.opts.Builder == nil {
		return nil, fmt.Errorf("command requires a policy and a builder")
	}
	if err := c.transition(ctx, StateResolving); err != nil {
		return nil, ErrAlreadyRun
	}

	result := &Result{}

	cfg, defs, err := bundlecfg.Resolve(raw, c.opts.Policy)
	if err != nil {
		c.mustTransition(ctx, StateRejected)
		result.State = StateRejected
		c.logger.Debug("Rejected: %v", err)
		return result, err
	}
	c.mustTransition(ctx, StateResolved)
	result.Config = cfg
	result.Definitions = defs

	c.mustTransition(ctx, StateBuilding)
	result.Outcome = c.opts.Builder.Invoke(ctx, cfg, defs)
	if !result.Outcome.Succeeded() {
		c.mustTransition(ctx, StateFailed)
		result.State = StateFailed
		return result, result.Outcome.Err()
	}
	c.mustTransition(ctx, StateSucceeded)
	result.State = StateSucceeded

	result.done = make(chan struct{})
	if c.opts.DeferMetadata {
		// The build's own cfg pointer is handed over; nothing is re-resolved.
		go c.computeMetadata(context.WithoutCancel(ctx), cfg, result)
	} else {
		c.computeMetadata(ctx, cfg, result)
	}
	return result, nil
}

func (c *Command) computeMetadata(ctx context.Context, cfg *bundlecfg.Configuration, result *Result) {
	defer close(result.done)

	if c.opts.Metadata != nil {
		dims, err := c.opts.Metadata.ComputeUsageDimensions(ctx, cfg, c.opts.ProjectDir)
		if err != nil {
			c.logger.Warn("Usage metadata unavailable: %v", err)
			result.MetadataErr = err
		} else {
			result.Dimensions = dims
			if c.opts.Sink != nil {
				if err := c.opts.Sink.Record(ctx, dims); err != nil {
					c.logger.Warn("Failed to record usage: %v", err)
					result.MetadataErr = &usage.MetadataComputationError{Cause: err}
				}
			}
		}
	}

	c.mustTransition(ctx, StateMetadataComputed)
	result.State = StateMetadataComputed
}

// mustTransition is for transitions Run's control flow guarantees.
func (c *Command) mustTransition(ctx context.Context, to State) {
	if err := c.transition(ctx, to); err != nil {
		panic(err)
	}
}
