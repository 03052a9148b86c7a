package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// modIDRegex matches valid mod identifiers: a lowercase letter followed by
// 1-63 lowercase letters, digits, dashes or underscores.
var modIDRegex = regexp.MustCompile(`^[a-z][a-z0-9-_]{1,63}$`)

// ValidateModID validates a mod identifier as declared in package metadata.
func ValidateModID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidMetadata, "mod id cannot be empty")
	}
	if !modIDRegex.MatchString(id) {
		return New(ErrCodeInvalidMetadata, "invalid mod id %q (expected [a-z][a-z0-9-_]{1,63})", id)
	}
	return nil
}

// ValidateNestedPath validates the path of an archive nested inside another
// archive. It must be a relative, forward-slash path that stays inside the
// containing archive.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - No absolute paths
//   - No path traversal segments (..)
//   - No backslashes
func ValidateNestedPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "nested path cannot be empty")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "nested path %q contains control characters", path)
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "nested path %q must be relative", path)
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "nested path %q cannot contain backslashes", path)
	}

	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "nested path %q escapes its archive", path)
		}
	}

	return nil
}
