package quickinstall

import (
	"errors"
	"fmt"
)

// ErrBuildFailed is returned when `cargo install` exits with a non-zero status.
var ErrBuildFailed = errors.New("`cargo install` didn't work either. Looks like you're on your own.")

// MissingCrateError is returned when no crate was specified.
type MissingCrateError struct {
	Usage string
}

func (e *MissingCrateError) Error() string {
	return fmt.Sprintf("No crate name specified.\n\n%s", e.Usage)
}

// CrateNotFoundError is returned when the registry doesn't know the crate.
type CrateNotFoundError struct {
	Crate string
}

func (e *CrateNotFoundError) Error() string {
	return fmt.Sprintf("`%s` does not exist on crates.io.", e.Crate)
}

// NoFallbackError is returned when there is no artifact for the target and
// building from source was disabled.
type NoFallbackError struct {
	Target Target
}

func (e *NoFallbackError) Error() string {
	return fmt.Sprintf(
		"Could not find a pre-built package for %s %s on %s.",
		e.Target.Crate, e.Target.Version, e.Target.Triple,
	)
}

// ParseError is returned when rustc doesn't report a usable host triple.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Failed to parse `rustc -vV` output: %s", e.Reason)
}
