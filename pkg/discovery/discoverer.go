package discovery

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modscan/pkg/cache"
	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/metadata"
)

const (
	// DefaultMaxDepth bounds archive nesting.
	DefaultMaxDepth = 16
	// DefaultWorkers is the size of the probe worker pool.
	DefaultWorkers = 8
)

// State is the lifecycle phase of a [Discoverer].
type State int32

const (
	StateIdle State = iota
	StateCollecting
	StateExpanding
	StatePartitioned
	StateDone
)

// String returns the lower-case phase name.
func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateExpanding:
		return "expanding"
	case StatePartitioned:
		return "partitioned"
	case StateDone:
		return "done"
	default:
		return "idle"
	}
}

// Options configures a [Discoverer].
type Options struct {
	// VersionOverrides and DependencyOverrides are applied while parsing
	// metadata. Nil means no overrides.
	VersionOverrides    metadata.VersionOverrides
	DependencyOverrides metadata.DependencyOverrides

	// MaxDepth bounds nested archive expansion. Default: 16.
	MaxDepth int

	// Workers is the number of concurrent top-level probes. Default: 8.
	Workers int

	// Cache memoizes nested probes by content hash. Nil uses a cache
	// local to each run.
	Cache cache.Cache

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.VersionOverrides == nil {
		o.VersionOverrides = metadata.NoOverrides{}
	}
	if o.DependencyOverrides == nil {
		o.DependencyOverrides = metadata.NoOverrides{}
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Diagnostic records why a candidate is non-conforming or was skipped.
type Diagnostic struct {
	Severity errors.Severity
	Code     errors.Code
	Message  string
	Locator  string
	Cause    error
}

// Result is the outcome of a discovery run.
type Result struct {
	Graph         *Graph       // Sealed arena of every candidate
	Conforming    []*Candidate // Candidates with metadata, discovery order
	NonConforming []*Candidate // Candidates without usable metadata, discovery order
	NonFabric     []string     // Locators of non-conforming top-level candidates
	Diagnostics   []Diagnostic
}

// Discoverer turns the locators reported by finders into a candidate graph.
type Discoverer struct {
	opts    Options
	finders []Finder
	log     *log.Logger
	cache   cache.Cache

	run   sync.Mutex
	state atomic.Int32
}

// entry is a top-level locator collected from a finder.
type entry struct {
	locator       string
	requiresRemap bool
}

// New creates a Discoverer running finders in the given order.
func New(opts Options, finders ...Finder) *Discoverer {
	opts = opts.WithDefaults()
	return &Discoverer{opts: opts, finders: finders, log: opts.Logger}
}

// State returns the current lifecycle phase.
func (d *Discoverer) State() State { return State(d.state.Load()) }

// Discover runs the finders, probes every candidate and partitions the
// result. Only a finder failure or context cancellation is returned as an
// error; extraction failures are reported as diagnostics.
//
// Discover may be called again; each call starts from an empty graph.
func (d *Discoverer) Discover(ctx context.Context) (*Result, error) {
	d.run.Lock()
	defer d.run.Unlock()

	d.cache = d.opts.Cache
	if d.cache == nil {
		d.cache = cache.NewMemoryCache()
		defer d.cache.Close()
	}

	d.setState(StateCollecting)
	entries, err := d.collect(ctx)
	if err != nil {
		d.setState(StateIdle)
		return nil, err
	}
	d.log.Debug("collected candidates", "count", len(entries))

	d.setState(StateExpanding)
	probes, err := d.expand(ctx, entries)
	if err != nil {
		d.setState(StateIdle)
		return nil, err
	}

	res := d.build(entries, probes)
	d.setState(StatePartitioned)
	d.partition(res)

	d.setState(StateDone)
	return res, nil
}

func (d *Discoverer) setState(s State) { d.state.Store(int32(s)) }

// collect runs every finder in order. Duplicate locators keep their first
// position.
func (d *Discoverer) collect(ctx context.Context) ([]entry, error) {
	var entries []entry
	seen := make(map[string]bool)
	for i, f := range d.finders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := f.FindCandidates(ctx, func(locators []string, requiresRemap bool) {
			for _, loc := range locators {
				if seen[loc] {
					continue
				}
				seen[loc] = true
				entries = append(entries, entry{locator: loc, requiresRemap: requiresRemap})
			}
		})
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, errors.Wrap(errors.ErrCodeFinderFailed, err, "candidate finder %d", i)
		}
	}
	return entries, nil
}

// expand probes top-level entries on the worker pool. Results are stored by
// submission index, so completion order does not matter.
func (d *Discoverer) expand(ctx context.Context, entries []entry) ([]*probe, error) {
	probes := make([]*probe, len(entries))
	jobs := make(chan int, d.opts.Workers*2)

	var wg sync.WaitGroup
	for range min(d.opts.Workers, len(entries)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				probes[i] = d.probeTop(ctx, entries[i])
			}
		}()
	}

	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return probes, nil
}

// build creates the arena sequentially: every top-level candidate first in
// submission order, then their nested trees depth-first in the same order.
// Nested archives are deduplicated by content hash.
func (d *Discoverer) build(entries []entry, probes []*probe) *Result {
	g := NewGraph()
	res := &Result{Graph: g}
	byHash := make(map[string]int)

	tops := make([]*Candidate, len(entries))
	for i, e := range entries {
		p := probes[i]
		c := d.add(res, p, e.requiresRemap, true)
		tops[i] = c
		if p.hash != "" {
			if _, dup := byHash[p.hash]; !dup {
				byHash[p.hash] = c.ID
			}
		}
	}

	var attach func(parent *Candidate, p *probe)
	attach = func(parent *Candidate, p *probe) {
		for _, cp := range p.children {
			if id, ok := byHash[cp.hash]; ok && cp.hash != "" {
				res.link(parent.ID, id, cp.locator)
				continue
			}
			child := d.add(res, cp, parent.RequiresRemap, false)
			if cp.hash != "" {
				byHash[cp.hash] = child.ID
			}
			if res.link(parent.ID, child.ID, cp.locator) {
				attach(child, cp)
			}
		}
	}
	for i, c := range tops {
		attach(c, probes[i])
	}

	g.Seal()
	return res
}

// link records a containment edge. A refused edge becomes a warning at the
// child's locator and the child's own nested archives are not attached.
func (res *Result) link(parent, child int, locator string) bool {
	err := res.Graph.Link(parent, child)
	if err == nil {
		return true
	}
	res.Diagnostics = append(res.Diagnostics, Diagnostic{
		Severity: errors.SeverityWarning,
		Code:     errors.GetCode(err),
		Message:  errors.UserMessage(err),
		Locator:  locator,
		Cause:    err,
	})
	return false
}

// add stores the candidate for p and records its diagnostic.
func (d *Discoverer) add(res *Result, p *probe, requiresRemap, top bool) *Candidate {
	c, _ := res.Graph.Add(Candidate{
		Locator:       p.locator,
		Hash:          p.hash,
		Metadata:      p.meta,
		ParseErr:      p.err,
		RequiresRemap: requiresRemap,
		TopLevel:      top,
	})
	if p.err != nil {
		sev := errors.SeverityWarning
		if errors.Is(p.err, errors.ErrCodeMissingMetadata) {
			sev = errors.SeverityInfo
		}
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: sev,
			Code:     errors.GetCode(p.err),
			Message:  p.err.Error(),
			Locator:  p.locator,
			Cause:    p.err,
		})
		d.log.Debug("non-conforming candidate", "locator", p.locator, "err", p.err)
	}
	return c
}

// partition splits the arena into conforming and non-conforming sets.
func (d *Discoverer) partition(res *Result) {
	for _, c := range res.Graph.Candidates() {
		if c.Conforming() {
			res.Conforming = append(res.Conforming, c)
			continue
		}
		res.NonConforming = append(res.NonConforming, c)
		if c.TopLevel {
			res.NonFabric = append(res.NonFabric, c.Locator)
		}
	}
}
