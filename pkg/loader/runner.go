package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/modscan/pkg/cache"
	"github.com/matzehuels/modscan/pkg/discovery"
	"github.com/matzehuels/modscan/pkg/observability"
	"github.com/matzehuels/modscan/pkg/overrides"
	"github.com/matzehuels/modscan/pkg/report"
	"github.com/matzehuels/modscan/pkg/resolve"
)

// Runner executes the pipeline and hands report blocks to its sink.
//
// The Runner is stateless apart from the sink and logger; multiple
// goroutines can use the same Runner with different options.
type Runner struct {
	Sink   report.Sink
	Logger *log.Logger
}

// NewRunner creates a runner. A nil sink discards report blocks; a nil
// logger uses the default logger.
func NewRunner(sink report.Sink, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Sink: sink, Logger: logger}
}

// Execute runs discovery, resolution and reporting.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{RunID: uuid.NewString()}
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}
	logger = logger.With("run", result.RunID)

	ov, err := r.loadOverrides(opts)
	if err != nil {
		return nil, err
	}

	c, err := openCache(opts)
	if err != nil {
		return nil, err
	}
	if c != nil && c != opts.Cache {
		defer c.Close()
	}

	// Stage 1: Discover
	finders := opts.finders()
	observability.Pipeline().OnDiscoverStart(ctx, len(finders))
	discoverStart := time.Now()
	d := discovery.New(discovery.Options{
		VersionOverrides:    ov,
		DependencyOverrides: ov,
		MaxDepth:            opts.MaxDepth,
		Workers:             opts.Workers,
		Cache:               c,
		Logger:              logger,
	}, finders...)
	found, err := d.Discover(ctx)
	result.Stats.DiscoverTime = time.Since(discoverStart)
	if err != nil {
		observability.Pipeline().OnDiscoverComplete(ctx, 0, 0, result.Stats.DiscoverTime, err)
		return nil, fmt.Errorf("discover: %w", err)
	}
	result.Discovery = found
	result.Stats.Candidates = found.Graph.Len()
	result.Stats.NonConforming = len(found.NonConforming)
	observability.Pipeline().OnDiscoverComplete(ctx, result.Stats.Candidates, result.Stats.NonConforming, result.Stats.DiscoverTime, nil)

	logger.Info("discovered candidates",
		"candidates", result.Stats.Candidates,
		"non_conforming", result.Stats.NonConforming,
		"duration", result.Stats.DiscoverTime)
	report.DumpNonFabric(r.Sink, found.NonFabric)

	// Stage 2: Resolve
	observability.Pipeline().OnResolveStart(ctx, len(found.Conforming))
	resolveStart := time.Now()
	var pins resolve.Pins
	if ov != nil {
		pins = ov
	}
	resolved := resolve.New(resolve.Options{
		Env:    opts.Environment,
		Pins:   pins,
		Logger: logger,
	}).Resolve(found.Conforming)
	result.Stats.ResolveTime = time.Since(resolveStart)
	result.Resolution = resolved
	result.Stats.Accepted = len(resolved.Accepted)
	result.Stats.Conflicts = len(resolved.Rejected())
	observability.Pipeline().OnResolveComplete(ctx, result.Stats.Accepted, result.Stats.Conflicts, result.Stats.ResolveTime)

	logger.Info("resolved candidates",
		"accepted", result.Stats.Accepted,
		"conflicts", result.Stats.Conflicts,
		"duration", result.Stats.ResolveTime)

	// Stage 3: Report
	report.DumpProviders(r.Sink, resolved.Accepted, found.Graph)
	report.DumpConflicts(r.Sink, resolved.Diagnostics)

	return result, nil
}

// loadOverrides returns the configured overrides, or nil when none are.
func (r *Runner) loadOverrides(opts Options) (Overrides, error) {
	if opts.Overrides != nil {
		return opts.Overrides, nil
	}
	if opts.OverridesPath == "" {
		return nil, nil
	}
	f, err := overrides.Load(opts.OverridesPath)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	return f, nil
}

// openCache returns the probe cache for a run. A nil cache lets discovery
// use its own per-run cache.
func openCache(opts Options) (cache.Cache, error) {
	if opts.NoCache {
		return cache.NewNullCache(), nil
	}
	if opts.Cache != nil {
		return opts.Cache, nil
	}
	if opts.CacheDir == "" {
		return nil, nil
	}
	fc, err := cache.NewFileCache(opts.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return fc, nil
}
