package upgrade

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange is returned when the arguments do not describe the same models
	ErrOutOfRange = errors.New("argument out of range")
	// ErrUnsupportedDifference is returned when a difference is not one of the known variants
	ErrUnsupportedDifference = errors.New("unsupported difference")
	// ErrDependencyRootNotFound is returned when a property names a dependency root that is not an ancestor
	ErrDependencyRootNotFound = errors.New("dependency root not found")
	// ErrValidationFailed is returned when the synthesized sequence does not reproduce the target
	ErrValidationFailed = errors.New("upgrade sequence validation failed")
)

// ArgumentError names the argument that failed the precondition check
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrOutOfRange, e.Field, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrOutOfRange }

// ValidationError carries the diagnostics of a failed validation: both models, the sequence with
// its group comments and the residual difference.
type ValidationError struct {
	TargetDump  string
	CurrentDump string
	Sequence    string
	Residual    string
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error() + ": the upgraded model still differs from the target"
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// Report renders the full diagnostic dump
func (e *ValidationError) Report() string {
	var b strings.Builder
	section := func(title, body string) {
		fmt.Fprintf(&b, "=== %s ===\n%s", title, body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	section("Target model", e.TargetDump)
	section("Upgraded model", e.CurrentDump)
	section("Sequence", e.Sequence)
	section("Residual difference", e.Residual)
	return b.String()
}
