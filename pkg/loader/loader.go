// Package loader runs the complete discover → resolve → report pipeline.
//
// The CLI and embedding hosts share this package so every entry point
// builds finders, loads overrides and reports anomalies the same way.
//
// # Usage
//
//	runner := loader.NewRunner(report.NewLogSink(logger), logger)
//	res, err := runner.Execute(ctx, loader.Options{
//	    ModsDir:     "mods",
//	    Environment: metadata.EnvClient,
//	})
//	if err != nil {
//	    return err
//	}
//	for _, c := range res.Resolution.Accepted {
//	    fmt.Println(c.Metadata.ID)
//	}
package loader

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modscan/pkg/cache"
	"github.com/matzehuels/modscan/pkg/discovery"
	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/metadata"
	"github.com/matzehuels/modscan/pkg/resolve"
)

// DefaultModsDir is the mods directory used when none is configured.
const DefaultModsDir = "mods"

// Overrides bundles every override query the pipeline consumes.
// *overrides.File and overrides.Map satisfy it.
type Overrides interface {
	metadata.VersionOverrides
	metadata.DependencyOverrides
	resolve.Pins
}

// Options configures one pipeline run.
type Options struct {
	// Candidate sources
	ModsDir    string   // Directory scanned for archives ("" skips it)
	ExtraPaths []string // Additional archives or directories, reported after ModsDir
	Finders    []discovery.Finder

	// Resolution
	Environment   metadata.Environment
	OverridesPath string    // TOML or YAML override file, loaded when set
	Overrides     Overrides // Used instead of OverridesPath when set

	// Discovery limits
	MaxDepth int
	Workers  int

	// Probe cache: Cache wins over CacheDir; neither means a per-run cache.
	// NoCache wins over both and stores nothing, not even within the run.
	Cache    cache.Cache
	CacheDir string
	NoCache  bool

	Logger *log.Logger
}

// ValidateAndSetDefaults checks option values and fills defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.MaxDepth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max depth must not be negative, got %d", o.MaxDepth)
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative, got %d", o.Workers)
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = discovery.DefaultMaxDepth
	}
	if o.Workers == 0 {
		o.Workers = discovery.DefaultWorkers
	}
	if o.ModsDir == "" && len(o.ExtraPaths) == 0 && len(o.Finders) == 0 {
		o.ModsDir = DefaultModsDir
	}
	return nil
}

// finders returns the candidate sources in reporting order.
func (o *Options) finders() []discovery.Finder {
	var fs []discovery.Finder
	if o.ModsDir != "" {
		fs = append(fs, discovery.DirectoryFinder{Dir: o.ModsDir})
	}
	if len(o.ExtraPaths) > 0 {
		fs = append(fs, discovery.PathFinder{Paths: o.ExtraPaths})
	}
	return append(fs, o.Finders...)
}

// Stats records counts and durations of a run.
type Stats struct {
	DiscoverTime  time.Duration
	ResolveTime   time.Duration
	Candidates    int
	NonConforming int
	Accepted      int
	Conflicts     int
}

// Result is the outcome of [Runner.Execute].
type Result struct {
	RunID      string
	Discovery  *discovery.Result
	Resolution *resolve.Result
	Stats      Stats
}
