// Package pathsafe is the sole way the core produces filesystem paths
// from caller-supplied names. It resolves a candidate path against a
// configured root and rejects anything that would escape it.
package pathsafe

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrOutsideRoot is returned when a resolved path would escape root.
var ErrOutsideRoot = errors.New("pathsafe: resolved path escapes root")

// ErrInvalidSegment is returned when a path segment fails the naming
// policy (must match segmentPattern after normalization).
var ErrInvalidSegment = errors.New("pathsafe: invalid path segment")

var segmentPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NormalizeSegment lower-cases and replaces spaces with underscores,
// the normalization the repository and pipeline apply to payer and
// medication names before using them as storage keys or filenames.
func NormalizeSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// ValidateSegment checks a normalized segment against the naming
// policy. Any segment containing "/", "..", or control characters is
// already rejected by segmentPattern's closed character class.
func ValidateSegment(s string) error {
	if !segmentPattern.MatchString(s) {
		return ErrInvalidSegment
	}
	return nil
}

// Resolve joins root with the given segments, validates each segment,
// and verifies the resulting absolute path remains under root. It is
// the only function in the core allowed to build a path from
// caller-supplied names.
func Resolve(root string, segments ...string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, absRoot)
	for _, seg := range segments {
		norm := NormalizeSegment(seg)
		if err := ValidateSegment(norm); err != nil {
			return "", err
		}
		parts = append(parts, norm)
	}

	candidate := filepath.Join(parts...)
	candidate = filepath.Clean(candidate)

	rootWithSep := absRoot
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	if candidate != absRoot && !strings.HasPrefix(candidate, rootWithSep) {
		return "", ErrOutsideRoot
	}

	return candidate, nil
}

// ResolveFile behaves like Resolve but appends a literal filename
// (not itself validated against segmentPattern, since filenames carry
// extensions) after resolving and validating the directory segments.
func ResolveFile(root string, dirSegments []string, filename string) (string, error) {
	dir, err := Resolve(root, dirSegments...)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return "", ErrInvalidSegment
	}
	full := filepath.Join(dir, filename)
	rootWithSep := dir
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	if !strings.HasPrefix(full, rootWithSep) && full != dir {
		return "", ErrOutsideRoot
	}
	return full, nil
}
