package metadata

import (
	"slices"
	"strings"
)

// FileName is the name of the metadata file at the root of a package.
const FileName = "fabric.mod.json"

// Environment restricts the side a package can be loaded on.
type Environment int

const (
	// EnvCommon packages load everywhere. As a run environment, it accepts
	// every package regardless of its own restriction.
	EnvCommon Environment = iota
	// EnvClient packages load on clients only.
	EnvClient
	// EnvServer packages load on dedicated servers only.
	EnvServer
)

// ParseEnvironment converts the metadata/config spelling of an environment.
// "*", "" and "common" map to EnvCommon.
func ParseEnvironment(s string) (Environment, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "*", "common":
		return EnvCommon, true
	case "client":
		return EnvClient, true
	case "server":
		return EnvServer, true
	}
	return EnvCommon, false
}

// String returns "*", "client" or "server".
func (e Environment) String() string {
	switch e {
	case EnvClient:
		return "client"
	case EnvServer:
		return "server"
	default:
		return "*"
	}
}

// Matches reports whether a package restricted to e may load in run.
func (e Environment) Matches(run Environment) bool {
	return e == EnvCommon || run == EnvCommon || e == run
}

// DependencyKind classifies a dependency relation.
type DependencyKind int

const (
	// Depends is a required dependency: the target must be loaded and match.
	Depends DependencyKind = iota
	// Recommends is a soft dependency: a warning when missing.
	Recommends
	// Suggests is informational only.
	Suggests
	// Conflicts is a soft incompatibility: a warning when present.
	Conflicts
	// Breaks is a hard incompatibility: the dependent cannot load when the
	// target is present in range.
	Breaks
)

// DependencyKinds lists every kind in declaration order.
var DependencyKinds = []DependencyKind{Depends, Recommends, Suggests, Conflicts, Breaks}

// String returns the metadata key of the kind ("depends", "breaks", ...).
func (k DependencyKind) String() string {
	switch k {
	case Depends:
		return "depends"
	case Recommends:
		return "recommends"
	case Suggests:
		return "suggests"
	case Conflicts:
		return "conflicts"
	case Breaks:
		return "breaks"
	}
	return "unknown"
}

// ParseDependencyKind is the inverse of [DependencyKind.String].
func ParseDependencyKind(s string) (DependencyKind, bool) {
	for _, k := range DependencyKinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Dependency is one declared relation to another package.
type Dependency struct {
	ModID  string         // Target identity
	Ranges []VersionRange // Acceptable versions, any of which may match (empty = any)
	Kind   DependencyKind // Relation kind
}

// Matches reports whether v is within the dependency's ranges.
func (d Dependency) Matches(v Version) bool { return MatchesAny(d.Ranges, v) }

// String renders the dependency as "kind id range".
func (d Dependency) String() string {
	return d.Kind.String() + " " + d.ModID + " " + FormatRanges(d.Ranges)
}

// Metadata is the immutable description of a package extracted from its
// metadata file, after overrides were applied.
type Metadata struct {
	ID           string       // Identity, stable across versions
	Version      Version      // Declared (or overridden) version
	Name         string       // Display name, defaults to ID
	Description  string       // Free-form description
	Dependencies []Dependency // Relations in declaration order, grouped by kind
	Provides     []string     // Alternate identities, never equal to ID
	Environment  Environment  // Load side restriction
	Jars         []string     // Nested archive paths declared by the package
}

// DependenciesOf returns the dependencies of the given kind.
func (m *Metadata) DependenciesOf(kind DependencyKind) []Dependency {
	var out []Dependency
	for _, d := range m.Dependencies {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Identities returns the own identity followed by every provided identity.
func (m *Metadata) Identities() []string {
	return append([]string{m.ID}, m.Provides...)
}

// HasForeignProvides reports whether the package provides at least one
// identity other than its own.
func (m *Metadata) HasForeignProvides() bool {
	return slices.ContainsFunc(m.Provides, func(p string) bool { return p != m.ID })
}

// String returns "id version".
func (m *Metadata) String() string {
	return m.ID + " " + m.Version.String()
}
