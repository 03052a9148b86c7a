package metadata

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/matzehuels/modscan/pkg/errors"
)

// versionPattern accepts MAJOR[.MINOR[.PATCH]][-PRERELEASE][+BUILD] with an
// optional leading "v". Missing MINOR/PATCH components are zero-filled.
var versionPattern = regexp.MustCompile(
	`^v?(0|[1-9][0-9]*)(?:\.(0|[1-9][0-9]*))?(?:\.(0|[1-9][0-9]*))?(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`,
)

// Version is a parsed, totally ordered package version.
// The zero value is not a valid version; use [ParseVersion].
type Version struct {
	raw  string // text as declared, used for display
	norm string // canonical "vX.Y.Z[-pre]" form used for ordering
}

// ParseVersion parses a version string such as "1.0", "2.2.7" or
// "v1.3.0-beta.1+build5". Build metadata is ignored for ordering.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, errors.New(errors.ErrCodeInvalidMetadata, "malformed version %q", s)
	}

	minor, patch := m[2], m[3]
	if minor == "" {
		minor = "0"
	}
	if patch == "" {
		patch = "0"
	}

	norm := "v" + m[1] + "." + minor + "." + patch + m[4]
	if !semver.IsValid(norm) {
		return Version{}, errors.New(errors.ErrCodeInvalidMetadata, "malformed version %q", s)
	}
	return Version{raw: s, norm: norm}, nil
}

// MustParseVersion is like [ParseVersion] but panics on error.
// It is intended for constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as originally declared.
func (v Version) String() string { return v.raw }

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool { return v.norm == "" }

// Compare returns -1, 0 or +1 as v is less than, equal to, or greater than o.
// Two versions that differ only in build metadata compare equal.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.norm, o.norm)
}

// Equal reports whether v and o have the same precedence.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// major returns the major component as the canonical "vX" prefix.
func (v Version) major() string { return semver.Major(v.norm) }

// majorMinor returns the canonical "vX.Y" prefix.
func (v Version) majorMinor() string { return semver.MajorMinor(v.norm) }
