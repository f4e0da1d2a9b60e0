// Package errorsx defines the core's error taxonomy (§7 of the
// specification). Each kind carries a distinct sentinel so callers
// can branch with errors.Is, and wraps an underlying cause with %w.
package errorsx

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Exactly one of these wraps any error the core
// returns to a non-core caller; evaluation itself never returns an
// error (unknown facts become verdicts, not exceptions).
var (
	ErrNotFound     = errors.New("not found")
	ErrExtraction   = errors.New("extraction failed")
	ErrValidation   = errors.New("validation failed")
	ErrStorage      = errors.New("storage error")
	ErrInvalidInput = errors.New("invalid input")
)

// NotFound wraps ErrNotFound with a message describing what was
// missing (policy key, version, or source file).
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Extraction wraps ErrExtraction. The caller never mutates the
// repository after this is returned.
func Extraction(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrExtraction)
}

// Validation wraps ErrValidation, used when a pipeline pass returns a
// malformed payload that cannot be salvaged even by the degraded path.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// Storage wraps ErrStorage for transport-level persistence failures.
func Storage(cause error, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %v", fmt.Sprintf(format, args...), ErrStorage, cause)
}

// InvalidInput wraps ErrInvalidInput for malformed payer/medication
// names, path-traversal attempts, or malformed version labels —
// rejected before any work begins.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// Is reports whether err ultimately wraps target, a thin re-export so
// call sites don't need a second import for the common case.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
