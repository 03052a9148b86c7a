package discovery

import (
	"slices"
	"sync"

	"github.com/matzehuels/modscan/pkg/errors"
)

var (
	// ErrCycle is returned by [Graph.Link] when the edge would make a
	// candidate (transitively) contain itself.
	ErrCycle = errors.New(errors.ErrCodeCycle, "containment would form a cycle")

	// ErrSealed is returned by mutating methods after [Graph.Seal].
	ErrSealed = errors.New(errors.ErrCodeInternal, "candidate graph is sealed")

	// ErrUnknownCandidate is returned by [Graph.Link] when either endpoint
	// is not in the graph.
	ErrUnknownCandidate = errors.New(errors.ErrCodeInvalidInput, "unknown candidate")
)

// Graph is the arena owning every candidate of a discovery run. Edges point
// from a containing archive to the archives nested inside it; a candidate
// may have several parents when the same archive is shared.
//
// Graph is safe for concurrent use.
type Graph struct {
	mu       sync.RWMutex
	nodes    []*Candidate
	children [][]int // candidate ID -> nested candidate IDs, insertion order
	parents  [][]int // candidate ID -> containing candidate IDs, insertion order
	sealed   bool
}

// NewGraph creates an empty arena.
func NewGraph() *Graph {
	return &Graph{}
}

// Add stores c and assigns its ID. The caller's value is copied.
func (g *Graph) Add(c Candidate) (*Candidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return nil, ErrSealed
	}
	c.ID = len(g.nodes)
	node := &c
	g.nodes = append(g.nodes, node)
	g.children = append(g.children, nil)
	g.parents = append(g.parents, nil)
	return node, nil
}

// Link records that parent contains child. Linking an existing pair again
// is a no-op. Returns ErrCycle if child already (transitively) contains
// parent, including parent == child.
func (g *Graph) Link(parent, child int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sealed {
		return ErrSealed
	}
	if !g.valid(parent) || !g.valid(child) {
		return ErrUnknownCandidate
	}
	if slices.Contains(g.children[parent], child) {
		return nil
	}
	if g.reaches(child, parent) {
		return ErrCycle
	}
	g.children[parent] = append(g.children[parent], child)
	g.parents[child] = append(g.parents[child], parent)
	return nil
}

// Seal freezes the graph. Reads stay valid; Add and Link fail afterwards.
func (g *Graph) Seal() {
	g.mu.Lock()
	g.sealed = true
	g.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (g *Graph) Sealed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sealed
}

// Len returns the number of candidates.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Candidate returns the candidate with the given ID.
func (g *Graph) Candidate(id int) (*Candidate, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(id) {
		return nil, false
	}
	return g.nodes[id], true
}

// Candidates returns every candidate in insertion order.
func (g *Graph) Candidates() []*Candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.nodes)
}

// Children returns the IDs of the archives nested in id, in insertion order.
func (g *Graph) Children(id int) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(id) {
		return nil
	}
	return slices.Clone(g.children[id])
}

// Parents returns the IDs of the archives containing id, in insertion order.
func (g *Graph) Parents(id int) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(id) {
		return nil
	}
	return slices.Clone(g.parents[id])
}

// Roots returns the candidates without parents, in insertion order.
func (g *Graph) Roots() []*Candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var roots []*Candidate
	for id, n := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Root returns the representative top-most container of id: the last root
// reached by a depth-first walk over parents in insertion order. A candidate
// without parents is its own root. Returns nil for an unknown ID.
func (g *Graph) Root(id int) *Candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.valid(id) {
		return nil
	}

	root := id
	seen := make(map[int]bool)
	var walk func(n int)
	walk = func(n int) {
		if seen[n] {
			return
		}
		seen[n] = true
		if len(g.parents[n]) == 0 {
			root = n
			return
		}
		for _, p := range g.parents[n] {
			walk(p)
		}
	}
	walk(id)
	return g.nodes[root]
}

func (g *Graph) valid(id int) bool { return id >= 0 && id < len(g.nodes) }

// reaches reports whether to is reachable from from along containment edges.
func (g *Graph) reaches(from, to int) bool {
	if from == to {
		return true
	}
	seen := make([]bool, len(g.nodes))
	stack := []int{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range g.children[n] {
			if c == to {
				return true
			}
			if !seen[c] {
				seen[c] = true
				stack = append(stack, c)
			}
		}
	}
	return false
}
