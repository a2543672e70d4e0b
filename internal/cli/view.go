package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gitscape/gitscape/pkg/engine"
	"github.com/gitscape/gitscape/pkg/gitsource"
	"github.com/gitscape/gitscape/pkg/observability"
)

// viewCommand creates the view command, the interactive scene.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		tuning  string
		layoutM string
		limit   int
		noCache bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "view [repository]",
		Short: "Explore a repository interactively",
		Long: `Open a repository as an interactive scene in the terminal.

Directories and files are laid out by a force simulation (or circle
packing, toggle with f/p). The commit history can be replayed commit by
commit (h/l) or as a continuous animation (space); each commit launches
one flight per touched file onto its node.

With --watch the repository is re-scanned whenever its .git directory
changes and the scene rebinds to the new tree.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), repoArg(args), viewOptions{
				tuning:  tuning,
				layout:  layoutM,
				limit:   limit,
				noCache: noCache,
				watch:   watch,
			})
		},
	}

	cmd.Flags().StringVar(&tuning, "tuning", "", "TOML file overriding layout parameters")
	cmd.Flags().StringVar(&layoutM, "layout", "force", "initial layout engine: force, pack")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of commits to scan (0 = default cap)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rescan when the repository changes")

	return cmd
}

// viewOptions bundles the view command flags.
type viewOptions struct {
	tuning  string
	layout  string
	limit   int
	noCache bool
	watch   bool
}

// runView scans the repository and hands the engine to the TUI.
func (c *CLI) runView(ctx context.Context, repoPath string, opts viewOptions) error {
	installHooks(loggerFromContext(ctx))
	defer observability.Reset()

	cfg, err := loadTuning(opts.tuning)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
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

	e := engine.New(ctx, res.Tree, res.History, cfg)
	if mode != engine.ForceDirected {
		e.SwitchLayout(mode)
	}

	p := tea.NewProgram(
		NewSceneModel(e, repoPath, res.HeadSHA),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if opts.watch {
		w, werr := gitsource.NewWatcher(repoPath, func() {
			go func() {
				fresh, serr := scanner.Scan(context.Background())
				if serr != nil {
					p.Send(rescanFailedMsg{err: serr})
					return
				}
				p.Send(rebindMsg{res: fresh})
			}()
		})
		if werr != nil {
			printWarning("watch disabled: %v", werr)
		} else {
			defer w.Close()
			go w.Run(ctx)
		}
	}

	_, err = p.Run()
	return err
}

// parseLayoutMode maps the --layout flag to an engine mode.
func parseLayoutMode(s string) (engine.LayoutMode, error) {
	switch s {
	case "", "force":
		return engine.ForceDirected, nil
	case "pack":
		return engine.CirclePack, nil
	default:
		return engine.ForceDirected, fmt.Errorf("unknown layout %q (force, pack)", s)
	}
}
