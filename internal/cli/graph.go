package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modscan/pkg/loader"
	"github.com/matzehuels/modscan/pkg/render/containment"
	"github.com/matzehuels/modscan/pkg/report"
)

// Graph output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
)

type graphOpts struct {
	sourceFlags
	output   string
	format   string
	detailed bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the archive containment graph",
		Long: `Scan mods like the scan command, then export which archives were found
inside which as Graphviz DOT or SVG. Accepted mods are highlighted;
files without metadata are drawn dashed.`,
		Example: `  modscan graph -o mods.svg
  modscan graph --format dot | dot -Tpng > mods.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd.Flags(), &opts.sourceFlags)
			if err != nil {
				return err
			}
			return c.runGraph(cmd, c.loaderOptions(cfg), opts)
		},
	}

	opts.register(cmd.Flags())
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: dot or svg (default: from --output extension, else dot)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include locators and provided ids in node labels")

	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, lopts loader.Options, opts graphOpts) error {
	format := graphFormat(opts.format, opts.output)
	if format != formatDOT && format != formatSVG {
		return fmt.Errorf("unknown format %q: want dot or svg", format)
	}

	ctx := withLogger(cmd.Context(), c.Logger)
	logger := loggerFromContext(ctx)
	res, err := loader.NewRunner(report.NewLogSink(logger), logger).Execute(ctx, lopts)
	if err != nil {
		return err
	}

	dot := containment.ToDOT(res.Discovery.Graph, containment.Options{
		Detailed: opts.detailed,
		Accepted: res.Resolution.Accepted,
	})
	data := []byte(dot)

	if format == formatSVG {
		spin := newSpinnerWithContext(ctx, cmd.ErrOrStderr(), "Rendering SVG...")
		spin.Start()
		data, err = containment.RenderSVG(ctx, dot)
		spin.Stop()
		if err != nil {
			return err
		}
	}

	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	errOut := cmd.ErrOrStderr()
	printSuccess(errOut, "Exported %d candidates", res.Discovery.Graph.Len())
	printFile(errOut, opts.output)
	return nil
}

// graphFormat picks the explicit format, else the output extension, else DOT.
func graphFormat(explicit, output string) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	if strings.EqualFold(filepath.Ext(output), ".svg") {
		return formatSVG
	}
	return formatDOT
}
