package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/loader"
	"github.com/matzehuels/modscan/pkg/report"
)

// Output formats for scan results.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type scanOpts struct {
	sourceFlags
	format string
	strict bool
}

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	opts := scanOpts{format: formatText}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Discover and resolve mods",
		Long: `Scan the mods directory and any extra paths, read every fabric.mod.json
including those of nested jars, and resolve the set of mods a loader would
start with. Positional paths are scanned after the configured ones.
Non-fabric files, nested providers and resolution issues are
logged to stderr; the accepted set is printed to stdout.`,
		Example: `  modscan scan
  modscan scan --mods ~/.minecraft/mods --env server
  modscan scan build/libs/mymod-1.0.jar
  modscan scan --overrides overrides.toml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd.Flags(), &opts.sourceFlags)
			if err != nil {
				return err
			}
			cfg.ExtraPaths = append(cfg.ExtraPaths, args...)
			return c.runScan(cmd, c.loaderOptions(cfg), opts)
		},
	}

	opts.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when any mod was rejected")

	return cmd
}

func (c *CLI) runScan(cmd *cobra.Command, lopts loader.Options, opts scanOpts) error {
	switch opts.format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q: want text, json or yaml", opts.format)
	}

	ctx := withLogger(cmd.Context(), c.Logger)
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	runner := loader.NewRunner(report.NewLogSink(logger), logger)
	res, err := runner.Execute(ctx, lopts)
	if err != nil {
		return err
	}
	prog.done("Scan complete")

	sum := summarize(res, lopts)
	out := cmd.OutOrStdout()
	switch opts.format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(sum)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		err = enc.Encode(sum)
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	default:
		printSummary(out, sum)
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if opts.strict && sum.Rejected > 0 {
		return fmt.Errorf("%d mod(s) rejected during resolution", sum.Rejected)
	}
	return nil
}

// =============================================================================
// Summary
// =============================================================================

type scanSummary struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	Environment string         `json:"environment" yaml:"environment"`
	Candidates  int            `json:"candidates" yaml:"candidates"`
	Rejected    int            `json:"rejected" yaml:"rejected"`
	Mods        []modSummary   `json:"mods" yaml:"mods"`
	NonFabric   []string       `json:"non_fabric,omitempty" yaml:"non_fabric,omitempty"`
	Issues      []issueSummary `json:"issues,omitempty" yaml:"issues,omitempty"`
}

type modSummary struct {
	ID      string `json:"id" yaml:"id"`
	Version string `json:"version" yaml:"version"`
	Source  string `json:"source" yaml:"source"`
	Nested  bool   `json:"nested,omitempty" yaml:"nested,omitempty"`
}

type issueSummary struct {
	Severity string `json:"severity" yaml:"severity"`
	Code     string `json:"code" yaml:"code"`
	Subject  string `json:"subject" yaml:"subject"`
	Message  string `json:"message" yaml:"message"`
}

func summarize(res *loader.Result, opts loader.Options) scanSummary {
	sum := scanSummary{
		RunID:       res.RunID,
		Environment: opts.Environment.String(),
		Candidates:  res.Stats.Candidates,
		Rejected:    res.Stats.Conflicts,
		Mods:        make([]modSummary, 0, len(res.Resolution.Accepted)),
		NonFabric:   res.Discovery.NonFabric,
	}

	for _, c := range res.Resolution.Accepted {
		sum.Mods = append(sum.Mods, modSummary{
			ID:      c.Metadata.ID,
			Version: c.Metadata.Version.String(),
			Source:  c.Locator,
			Nested:  !c.TopLevel,
		})
	}

	for _, d := range res.Discovery.Diagnostics {
		if d.Severity < errors.SeverityWarning {
			continue
		}
		sum.Issues = append(sum.Issues, issueSummary{
			Severity: d.Severity.String(),
			Code:     string(d.Code),
			Subject:  d.Locator,
			Message:  d.Message,
		})
	}
	for _, d := range res.Resolution.Diagnostics {
		if d.Severity < errors.SeverityWarning {
			continue
		}
		sum.Issues = append(sum.Issues, issueSummary{
			Severity: d.Severity.String(),
			Code:     string(d.Reason),
			Subject:  d.ModID,
			Message:  d.Message,
		})
	}
	return sum
}

func printSummary(w io.Writer, sum scanSummary) {
	printTitle(w, fmt.Sprintf("Mods (%s)", sum.Environment))
	for _, m := range sum.Mods {
		printMod(w, m.ID, m.Version, m.Source, m.Nested)
	}
	fmt.Fprintln(w)

	for _, is := range sum.Issues {
		line := fmt.Sprintf("[%s] %s: %s", is.Code, is.Subject, is.Message)
		if is.Severity == errors.SeverityError.String() {
			printError(w, "%s", line)
		} else {
			printWarning(w, "%s", line)
		}
	}

	if sum.Rejected > 0 {
		printWarning(w, "Loaded %d mods, %d rejected", len(sum.Mods), sum.Rejected)
	} else {
		printSuccess(w, "Loaded %d mods", len(sum.Mods))
	}
	printDetail(w, "%d candidates, %d non-fabric", sum.Candidates, len(sum.NonFabric))
}
