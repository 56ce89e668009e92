package bundlecfg

import (
	"errors"
	"fmt"

	"bundler/pkg/features"
	"bundler/pkg/platform"
)

var (
	// ErrUnsupportedPlatform matches any UnsupportedPlatformError.
	ErrUnsupportedPlatform = errors.New("unsupported target platform")
	// ErrInvalidFlag matches any InvalidFlagError.
	ErrInvalidFlag = errors.New("invalid flag")
)

// UnsupportedPlatformError reports a target platform whose family is gated off.
type UnsupportedPlatformError struct {
	Platform platform.TargetPlatform
}

func (e *UnsupportedPlatformError) Error() string {
	msg := fmt.Sprintf("%s is not a supported target platform", e.Platform)
	if f, ok := features.FeatureFor(e.Platform); ok {
		msg += fmt.Sprintf(" (enable %q or set %s=true)", f.Name, features.EnvName(f.Name))
	}
	return msg
}

func (e *UnsupportedPlatformError) Unwrap() error { return ErrUnsupportedPlatform }

// InvalidFlagError reports a malformed or contradictory flag value.
type InvalidFlagError struct {
	Flag   string
	Reason string
}

func (e *InvalidFlagError) Error() string {
	return fmt.Sprintf("invalid --%s: %s", e.Flag, e.Reason)
}

func (e *InvalidFlagError) Unwrap() error { return ErrInvalidFlag }

func invalidFlag(flag, format string, args ...any) error {
	return &InvalidFlagError{Flag: flag, Reason: fmt.Sprintf(format, args...)}
}
