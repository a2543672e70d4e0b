package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitscape/gitscape/pkg/engine"
	"github.com/gitscape/gitscape/pkg/errors"
	"github.com/gitscape/gitscape/pkg/export"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/observability"
)

// settleTickBudget caps how long the force simulation may run before a
// static export gives up waiting for convergence.
const settleTickBudget = 5000

// exportCommand creates the export command for static images.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		format   string
		output   string
		layoutM  string
		query    string
		detailed bool
		noFreeze bool
		limit    int
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "export [repository]",
		Short: "Export the repository layout to DOT, SVG, PNG, or JSON",
		Long: `Compute a layout for the repository and write it as a static artifact.

The pack layout (default) is deterministic; the force layout runs the
simulation to rest before capturing positions. With --query, matching
nodes are highlighted in the output.

By default node positions are frozen into the export so it matches what
the interactive view shows; --no-freeze lets Graphviz lay the graph out
from scratch instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateExportFormat(format); err != nil {
				return err
			}
			return c.runExport(cmd.Context(), repoArg(args), exportOptions{
				format:   strings.ToLower(format),
				output:   output,
				layout:   layoutM,
				query:    query,
				detailed: detailed,
				freeze:   !noFreeze,
				limit:    limit,
				noCache:  noCache,
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: svg, png, dot, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: graph.<format>)")
	cmd.Flags().StringVar(&layoutM, "layout", "pack", "layout engine: force, pack")
	cmd.Flags().StringVarP(&query, "query", "q", "", "highlight nodes matching this name substring")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include path and size in node labels")
	cmd.Flags().BoolVar(&noFreeze, "no-freeze", false, "let Graphviz lay the graph out instead of pinning positions")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of commits to scan (0 = default cap)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// exportOptions bundles the export command flags.
type exportOptions struct {
	format   string
	output   string
	layout   string
	query    string
	detailed bool
	freeze   bool
	limit    int
	noCache  bool
}

// runExport scans, settles a layout, and writes the artifact.
func (c *CLI) runExport(ctx context.Context, repoPath string, opts exportOptions) error {
	installHooks(loggerFromContext(ctx))
	defer observability.Reset()

	mode, err := parseLayoutMode(opts.layout)
	if err != nil {
		return err
	}

	scanner, err := c.newScanner(repoPath, opts.limit, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize scanner: %w", err)
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Scanning %s...", repoPath))
	spinner.Start()
	res, err := scanner.Scan(ctx)
	if err != nil {
		spinner.StopWithError("Scan failed")
		return err
	}
	spinner.Stop()

	e := engine.New(ctx, res.Tree, res.History, layout.DefaultConfig())
	if opts.query != "" {
		e.SetQuery(opts.query)
	}

	if mode == engine.CirclePack {
		e.SwitchLayout(engine.CirclePack)
	} else {
		settle(e)
	}

	snapshot := export.FromEngine(e)
	data, err := renderArtifact(snapshot, opts)
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = "graph." + opts.format
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printSuccess("Exported %d nodes", len(snapshot.Nodes))
	printFile(out)
	return nil
}

// settle runs the force simulation to rest, bounded by the tick budget.
func settle(e *engine.Engine) {
	const dt = 16 * time.Millisecond
	for i := 0; i < settleTickBudget; i++ {
		if !e.Tick(dt) {
			return
		}
	}
}

// renderArtifact produces the bytes for the requested format.
func renderArtifact(s export.Snapshot, opts exportOptions) ([]byte, error) {
	if opts.format == "json" {
		return export.ToJSON(s)
	}

	dot := export.ToDOT(s, export.Options{Detailed: opts.detailed, Freeze: opts.freeze})
	switch opts.format {
	case "dot":
		return []byte(dot), nil
	case "svg":
		return export.RenderSVG(dot)
	case "png":
		return export.RenderPNG(dot)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported export format: %q", opts.format)
}
