// Package containment exports the candidate graph of a discovery run:
// which archives were found inside which.
//
// [ToDOT] produces Graphviz DOT text that is useful on its own; [RenderSVG]
// lays it out with the embedded Graphviz library.
package containment

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/modscan/pkg/discovery"
)

// Options configures DOT output.
type Options struct {
	// Detailed adds the locator and provided identities to node labels.
	Detailed bool

	// Accepted candidates are highlighted. Nil highlights nothing.
	Accepted []*discovery.Candidate
}

// ToDOT converts the candidate graph to Graphviz DOT. Nodes and edges are
// written in arena order, so output is stable across runs.
//
// Non-conforming candidates are drawn dashed and grey.
func ToDOT(g *discovery.Graph, opts Options) string {
	accepted := make(map[int]bool, len(opts.Accepted))
	for _, c := range opts.Accepted {
		accepted[c.ID] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	cands := g.Candidates()
	for _, c := range cands {
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeID(c), strings.Join(attrs(c, accepted[c.ID], opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, c := range cands {
		for _, child := range g.Children(c.ID) {
			fmt.Fprintf(&buf, "  c%d -> c%d;\n", c.ID, child)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(c *discovery.Candidate) string { return fmt.Sprintf("c%d", c.ID) }

func label(c *discovery.Candidate, detailed bool) string {
	var lines []string
	if c.Metadata != nil {
		lines = append(lines, c.Metadata.ID+" "+c.Metadata.Version.String())
	} else {
		lines = append(lines, c.FileName())
	}
	if !detailed {
		return lines[0]
	}
	lines = append(lines, c.FileName())
	if c.Metadata != nil && len(c.Metadata.Provides) > 0 {
		lines = append(lines, "provides: "+strings.Join(c.Metadata.Provides, ", "))
	}
	return strings.Join(lines, "\n")
}

func attrs(c *discovery.Candidate, accepted, detailed bool) []string {
	out := []string{fmt.Sprintf("label=%q", label(c, detailed))}
	switch {
	case !c.Conforming():
		out = append(out, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case accepted:
		out = append(out, "fillcolor=palegreen")
	}
	if c.TopLevel {
		out = append(out, "penwidth=2")
	}
	return out
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
