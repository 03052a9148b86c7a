package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/modscan/internal/config"
	"github.com/matzehuels/modscan/pkg/buildinfo"
	"github.com/matzehuels/modscan/pkg/loader"
	"github.com/matzehuels/modscan/pkg/metadata"
	"github.com/matzehuels/modscan/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level, pipeline and
// cache hooks log through the CLI logger as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := observability.LogHooks{Logger: c.Logger}
		observability.SetPipelineHooks(hooks)
		observability.SetCacheHooks(hooks)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Modscan discovers, validates and resolves mod archives",
		Long:         `Modscan scans a mods directory the way a Fabric-style loader does: it finds mod archives, reads their fabric.mod.json (including jars nested inside jars), and resolves one consistent set of mods, reporting everything it had to reject.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: ./modscan.toml or ./modscan.yaml)")

	root.AddCommand(c.scanCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand prints the build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

// =============================================================================
// Configuration
// =============================================================================

// sourceFlags are the pipeline flags shared by scan and graph.
type sourceFlags struct {
	modsDir   string
	paths     []string
	env       string
	overrides string
	maxDepth  int
	workers   int
	noCache   bool
}

func (f *sourceFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.modsDir, "mods", "m", "", "mods directory to scan")
	fs.StringSliceVarP(&f.paths, "path", "p", nil, "additional archive or mod directory (repeatable)")
	fs.StringVarP(&f.env, "env", "e", "", "run environment: client, server or *")
	fs.StringVar(&f.overrides, "overrides", "", "version/dependency override file (.toml or .yaml)")
	fs.IntVar(&f.maxDepth, "max-depth", 0, "maximum nested archive depth")
	fs.IntVar(&f.workers, "workers", 0, "parallel archive readers")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the probe cache")
}

// loadConfig reads the config file and lets explicitly set flags win.
func (c *CLI) loadConfig(fs *pflag.FlagSet, f *sourceFlags) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		c.Logger.Debug("loaded config", "file", cfg.File)
	}

	if fs.Changed("mods") {
		cfg.ModsDir = f.modsDir
	}
	if fs.Changed("path") {
		cfg.ExtraPaths = f.paths
	}
	if fs.Changed("env") {
		cfg.Environment = f.env
	}
	if fs.Changed("overrides") {
		cfg.Overrides = f.overrides
	}
	if fs.Changed("max-depth") {
		cfg.MaxDepth = f.maxDepth
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("no-cache") {
		cfg.NoCache = f.noCache
	}

	if _, ok := metadata.ParseEnvironment(cfg.Environment); !ok {
		return nil, fmt.Errorf("invalid environment %q: want client, server or *", cfg.Environment)
	}
	return cfg, nil
}

// loaderOptions maps the CLI configuration onto pipeline options.
func (c *CLI) loaderOptions(cfg *config.Config) loader.Options {
	return loader.Options{
		ModsDir:       cfg.ModsDir,
		ExtraPaths:    cfg.ExtraPaths,
		Environment:   cfg.Env(),
		OverridesPath: cfg.Overrides,
		MaxDepth:      cfg.MaxDepth,
		Workers:       cfg.Workers,
		CacheDir:      cfg.CacheDir,
		NoCache:       cfg.NoCache,
		Logger:        c.Logger,
	}
}
