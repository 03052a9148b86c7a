package metadata

import (
	"strings"

	"github.com/matzehuels/modscan/pkg/errors"
)

type rangeOp int

const (
	opAny rangeOp = iota
	opEq
	opGt
	opGte
	opLt
	opLte
	opCaret // same major, >= version
	opTilde // same major.minor, >= version
	opMajor // "1.x"
	opMinor // "1.2.x"
)

type rangeTerm struct {
	op rangeOp
	v  Version
}

func (t rangeTerm) matches(v Version) bool {
	switch t.op {
	case opAny:
		return true
	case opEq:
		return v.Compare(t.v) == 0
	case opGt:
		return v.Compare(t.v) > 0
	case opGte:
		return v.Compare(t.v) >= 0
	case opLt:
		return v.Compare(t.v) < 0
	case opLte:
		return v.Compare(t.v) <= 0
	case opCaret:
		return v.major() == t.v.major() && v.Compare(t.v) >= 0
	case opTilde:
		return v.majorMinor() == t.v.majorMinor() && v.Compare(t.v) >= 0
	case opMajor:
		return v.major() == t.v.major()
	case opMinor:
		return v.majorMinor() == t.v.majorMinor()
	}
	return false
}

// VersionRange is a conjunction of version predicates, e.g. ">=1.2 <2".
// The zero value matches every version.
type VersionRange struct {
	raw   string
	terms []rangeTerm
}

// AnyVersion is the range that matches every version.
var AnyVersion = VersionRange{raw: "*"}

// ParseRange parses a whitespace-separated conjunction of predicates.
//
// Supported predicates:
//   - "*" or "" (any version)
//   - "1.2.3" or "=1.2.3" (exact)
//   - ">1.2", ">=1.2", "<2", "<=2.1"
//   - "^1.2" (same major, at least 1.2)
//   - "~1.2.3" (same major.minor, at least 1.2.3)
//   - "1.x", "1.2.x" (wildcards; "X" and "*" are accepted as well)
func ParseRange(s string) (VersionRange, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return VersionRange{raw: "*"}, nil
	}

	r := VersionRange{raw: s}
	for _, field := range strings.Fields(s) {
		t, err := parseTerm(field)
		if err != nil {
			return VersionRange{}, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "invalid version range %q", s)
		}
		r.terms = append(r.terms, t)
	}
	return r, nil
}

// MustParseRange is like [ParseRange] but panics on error.
func MustParseRange(s string) VersionRange {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseTerm(s string) (rangeTerm, error) {
	if s == "*" {
		return rangeTerm{op: opAny}, nil
	}

	op := opEq
	for _, p := range []struct {
		prefix string
		op     rangeOp
	}{
		{">=", opGte}, {"<=", opLte}, {">", opGt}, {"<", opLt}, {"=", opEq}, {"^", opCaret}, {"~", opTilde},
	} {
		if strings.HasPrefix(s, p.prefix) {
			op = p.op
			s = s[len(p.prefix):]
			break
		}
	}

	if op == opEq {
		if base, ok := cutWildcard(s); ok {
			v, err := ParseVersion(base)
			if err != nil {
				return rangeTerm{}, err
			}
			if strings.Count(base, ".") == 0 {
				return rangeTerm{op: opMajor, v: v}, nil
			}
			return rangeTerm{op: opMinor, v: v}, nil
		}
	}

	v, err := ParseVersion(s)
	if err != nil {
		return rangeTerm{}, err
	}
	return rangeTerm{op: op, v: v}, nil
}

// cutWildcard strips a trailing ".x", ".X" or ".*" segment.
func cutWildcard(s string) (string, bool) {
	for _, suffix := range []string{".x", ".X", ".*"} {
		if base, ok := strings.CutSuffix(s, suffix); ok && base != "" {
			return base, true
		}
	}
	return s, false
}

// Matches reports whether v satisfies every predicate of the range.
func (r VersionRange) Matches(v Version) bool {
	for _, t := range r.terms {
		if !t.matches(v) {
			return false
		}
	}
	return true
}

// IsAny reports whether the range matches every version.
func (r VersionRange) IsAny() bool { return len(r.terms) == 0 }

// String returns the range as declared; the any-range renders as "*".
func (r VersionRange) String() string {
	if r.raw == "" {
		return "*"
	}
	return r.raw
}

// MatchesAny reports whether v satisfies at least one of ranges. An empty
// slice matches every version.
func MatchesAny(ranges []VersionRange, v Version) bool {
	if len(ranges) == 0 {
		return true
	}
	for _, r := range ranges {
		if r.Matches(v) {
			return true
		}
	}
	return false
}

// FormatRanges renders a disjunction of ranges for diagnostics.
func FormatRanges(ranges []VersionRange) string {
	if len(ranges) == 0 {
		return "*"
	}
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, " || ")
}
