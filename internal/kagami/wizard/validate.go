package wizard

import (
	"errors"
	"path/filepath"
	"strings"
)

// Shared-dir validation errors, one per rejection rule so the operator sees
// what to fix.
var (
	errSharedDirEmpty    = errors.New("shared dir is empty")
	errSharedDirHome     = errors.New("shared dirs must be repo-relative (no '~')")
	errSharedDirAbsolute = errors.New("shared dirs must be repo-relative")
	errSharedDirParent   = errors.New("shared dirs must not contain parent/root components")
)

// ValidateSharedDir normalises and validates a repo-relative shared dir:
// trailing separators are trimmed, a leading "./" is stripped, and empty,
// home-anchored, absolute, or parent/root-traversing entries are rejected.
func ValidateSharedDir(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	value = strings.TrimRight(value, "/\\")
	for strings.HasPrefix(value, "./") {
		value = strings.TrimPrefix(value, "./")
	}

	if value == "" || value == "." {
		return "", errSharedDirEmpty
	}
	if strings.HasPrefix(value, "~") {
		return "", errSharedDirHome
	}
	if filepath.IsAbs(value) || strings.HasPrefix(value, "/") || strings.HasPrefix(value, "\\") {
		return "", errSharedDirAbsolute
	}
	if volume := filepath.VolumeName(value); volume != "" {
		return "", errSharedDirParent
	}
	for _, component := range strings.FieldsFunc(value, func(r rune) bool { return r == '/' || r == '\\' }) {
		if component == ".." {
			return "", errSharedDirParent
		}
	}
	return value, nil
}
