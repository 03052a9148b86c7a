// Package report renders the anomalies of a discovery and resolution run
// as deterministic multi-line blocks and hands them to a [Sink].
package report

import (
	"fmt"
	"strings"

	"github.com/matzehuels/modscan/pkg/discovery"
	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/resolve"
)

// Log categories.
const (
	CategoryDiscovery  = "discovery"
	CategoryResolution = "resolution"
)

// NonFabric renders the non-conforming top-level archives by file name.
// It returns "" for an empty list.
func NonFabric(locators []string) string {
	if len(locators) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d non-fabric mod(s):", len(locators))
	for _, loc := range locators {
		sb.WriteString("\n\t- ")
		sb.WriteString(discovery.BaseName(loc))
	}
	return sb.String()
}

// Providers renders the accepted candidates that provide an identity other
// than their own, each with the top-most archive it was loaded from. It
// returns "" when there are none.
func Providers(accepted []*discovery.Candidate, g *discovery.Graph) string {
	var lines []string
	for _, c := range accepted {
		if c.Metadata == nil || !c.Metadata.HasForeignProvides() {
			continue
		}
		root := rootOf(c, g)
		lines = append(lines, fmt.Sprintf("%s %s (in %s)", c.Metadata.ID, c.Metadata.Version, describe(root)))
	}
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d loaded mods that have providers:", len(lines))
	for _, l := range lines {
		sb.WriteString("\n\t- ")
		sb.WriteString(l)
	}
	return sb.String()
}

// Conflicts renders resolution diagnostics of warning severity and above.
// It returns "" when there are none.
func Conflicts(diags []resolve.Conflict) string {
	var shown []resolve.Conflict
	for _, d := range diags {
		if d.Severity >= errors.SeverityWarning {
			shown = append(shown, d)
		}
	}
	if len(shown) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d resolution issue(s):", len(shown))
	for _, d := range shown {
		fmt.Fprintf(&sb, "\n\t- [%s] %s", d.Reason, d.Message)
	}
	return sb.String()
}

// rootOf returns the representative root of c, or c itself when it is not
// part of g.
func rootOf(c *discovery.Candidate, g *discovery.Graph) *discovery.Candidate {
	if g == nil {
		return c
	}
	if own, ok := g.Candidate(c.ID); !ok || own != c {
		return c
	}
	return g.Root(c.ID)
}

func describe(c *discovery.Candidate) string {
	if c.Metadata == nil {
		return c.FileName()
	}
	return c.Metadata.ID + " " + c.Metadata.Version.String()
}
