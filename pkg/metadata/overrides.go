package metadata

import (
	"maps"
	"slices"
)

// VersionOverride replaces a package's declared version and/or the version
// ranges of its dependencies.
type VersionOverride struct {
	// Version replaces the declared version when non-empty.
	Version string
	// Ranges maps a dependency target to a replacement range. An empty
	// replacement deletes the constraint, leaving "any version".
	Ranges map[string]string
}

// VersionOverrides looks up the version override of a package by identity.
type VersionOverrides interface {
	VersionOverride(modID string) (VersionOverride, bool)
}

// DependencyOverride edits a package's dependency list. Each map is keyed by
// kind, then by target identity; values are range disjunctions.
type DependencyOverride struct {
	Replace map[DependencyKind]map[string][]string // Replaces every entry of the kind
	Remove  map[DependencyKind][]string            // Drops entries by target
	Add     map[DependencyKind]map[string][]string // Adds or replaces single entries
}

// DependencyOverrides looks up the dependency override of a package by identity.
type DependencyOverrides interface {
	DependencyOverride(modID string) (DependencyOverride, bool)
}

// NoOverrides implements both override interfaces with no data.
type NoOverrides struct{}

func (NoOverrides) VersionOverride(string) (VersionOverride, bool) { return VersionOverride{}, false }
func (NoOverrides) DependencyOverride(string) (DependencyOverride, bool) {
	return DependencyOverride{}, false
}

// applyDependencyOverride rewrites deps according to o: replacement first,
// then removal, then additions. Kinds keep their declaration order and
// entries added by the override are ordered by target identity.
func applyDependencyOverride(deps []Dependency, o DependencyOverride) ([]Dependency, error) {
	for _, kind := range DependencyKinds {
		repl, ok := o.Replace[kind]
		if !ok {
			continue
		}
		deps = slices.DeleteFunc(deps, func(d Dependency) bool { return d.Kind == kind })
		added, err := buildDependencies(kind, repl)
		if err != nil {
			return nil, err
		}
		deps = append(deps, added...)
	}

	for _, kind := range DependencyKinds {
		for _, id := range o.Remove[kind] {
			deps = slices.DeleteFunc(deps, func(d Dependency) bool { return d.Kind == kind && d.ModID == id })
		}
	}

	for _, kind := range DependencyKinds {
		added, err := buildDependencies(kind, o.Add[kind])
		if err != nil {
			return nil, err
		}
		for _, a := range added {
			i := slices.IndexFunc(deps, func(d Dependency) bool { return d.Kind == kind && d.ModID == a.ModID })
			if i >= 0 {
				deps[i] = a
			} else {
				deps = append(deps, a)
			}
		}
	}

	slices.SortStableFunc(deps, func(a, b Dependency) int { return int(a.Kind) - int(b.Kind) })
	return deps, nil
}

func buildDependencies(kind DependencyKind, entries map[string][]string) ([]Dependency, error) {
	out := make([]Dependency, 0, len(entries))
	for _, id := range slices.Sorted(maps.Keys(entries)) {
		ranges, err := parseRanges(entries[id])
		if err != nil {
			return nil, err
		}
		out = append(out, Dependency{ModID: id, Ranges: ranges, Kind: kind})
	}
	return out, nil
}

func parseRanges(specs []string) ([]VersionRange, error) {
	var out []VersionRange
	for _, s := range specs {
		r, err := ParseRange(s)
		if err != nil {
			return nil, err
		}
		if r.IsAny() {
			return nil, nil
		}
		out = append(out, r)
	}
	return out, nil
}
