package metadata

import "testing"

func TestParseRangeMatches(t *testing.T) {
	tests := []struct {
		rng     string
		version string
		want    bool
	}{
		{"*", "9.9.9", true},
		{"", "0.0.1", true},
		{"1.2.3", "1.2.3", true},
		{"1.2.3", "1.2.4", false},
		{"=1.2", "1.2.0", true},
		{">=1.2", "1.2.0", true},
		{">=1.2", "1.1.9", false},
		{">1.2", "1.2.0", false},
		{"<2", "1.99.0", true},
		{"<2", "2.0.0", false},
		{"<=2.1", "2.1.0", true},
		{"^1.2", "1.9.0", true},
		{"^1.2", "2.0.0", false},
		{"^1.2", "1.1.0", false},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"1.x", "1.7.2", true},
		{"1.x", "2.0.0", false},
		{"1.2.X", "1.2.8", true},
		{"1.2.*", "1.3.0", false},
		{">=1.0 <2.0", "1.5.0", true},
		{">=1.0 <2.0", "2.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.rng+"@"+tt.version, func(t *testing.T) {
			r, err := ParseRange(tt.rng)
			if err != nil {
				t.Fatalf("ParseRange(%q) error = %v", tt.rng, err)
			}
			if got := r.Matches(MustParseVersion(tt.version)); got != tt.want {
				t.Errorf("%q.Matches(%s) = %v, want %v", tt.rng, tt.version, got, tt.want)
			}
		})
	}
}

func TestParseRangeErrors(t *testing.T) {
	for _, s := range []string{">=", "^abc", "1.2.3.4", ">=1.0 <", "x.1"} {
		t.Run(s, func(t *testing.T) {
			if _, err := ParseRange(s); err == nil {
				t.Errorf("ParseRange(%q) expected error", s)
			}
		})
	}
}

func TestMatchesAny(t *testing.T) {
	v := MustParseVersion("3.1.0")

	if !MatchesAny(nil, v) {
		t.Error("empty ranges should match every version")
	}

	ranges := []VersionRange{MustParseRange("^2.2"), MustParseRange("3.x")}
	if !MatchesAny(ranges, v) {
		t.Error("3.1.0 should match ^2.2 || 3.x")
	}
	if MatchesAny(ranges, MustParseVersion("4.0")) {
		t.Error("4.0 should not match ^2.2 || 3.x")
	}

	if got := FormatRanges(ranges); got != "^2.2 || 3.x" {
		t.Errorf("FormatRanges() = %q", got)
	}
	if got := FormatRanges(nil); got != "*" {
		t.Errorf("FormatRanges(nil) = %q, want *", got)
	}
}
