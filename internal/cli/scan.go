package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gitscape/gitscape/pkg/history"
	"github.com/gitscape/gitscape/pkg/observability"
	"github.com/gitscape/gitscape/pkg/repotree"
)

// scanCommand creates the scan command for extracting graph documents.
func (c *CLI) scanCommand() *cobra.Command {
	var (
		output  string
		limit   int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "scan [repository]",
		Short: "Scan a repository into tree and history documents",
		Long: `Scan a git repository and write its file tree and commit history as
JSON documents (tree.json, commits.json).

The tree reflects the files present at HEAD; the history lists commits
oldest-first with per-file change status. Both documents round-trip
through 'gitscape view' and 'gitscape export'.

Results are cached locally keyed by the repository's HEAD, so repeated
scans of an unchanged repository are cheap.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScan(cmd.Context(), repoArg(args), output, limit, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory for tree.json and commits.json")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of commits to scan (0 = default cap)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runScan scans the repository and writes the documents.
func (c *CLI) runScan(ctx context.Context, repoPath, output string, limit int, noCache bool) error {
	scanner, err := c.newScanner(repoPath, limit, noCache)
	if err != nil {
		return fmt.Errorf("initialize scanner: %w", err)
	}

	logger := loggerFromContext(ctx)
	hooks := installHooks(logger)
	defer observability.Reset()

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Scanning %s...", repoPath))
	spinner.Start()

	res, err := scanner.Scan(ctx)
	if err != nil {
		spinner.StopWithError("Scan failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Scanned %d nodes, %d commits", len(res.Tree.Nodes), res.History.Len()))

	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", output, err)
	}

	treePath := filepath.Join(output, "tree.json")
	if err := repotree.WriteTreeFile(res.Tree, treePath); err != nil {
		return fmt.Errorf("write tree: %w", err)
	}
	commitsPath := filepath.Join(output, "commits.json")
	if err := history.WriteHistoryFile(res.History, commitsPath); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	printSuccess("Scanned %s at %.7s", repoPath, res.HeadSHA)
	printStats(len(res.Tree.Nodes), res.History.Len(), hooks.cacheHit)
	printFile(treePath)
	printFile(commitsPath)
	printNewline()
	printNextStep("Explore interactively", fmt.Sprintf("gitscape view %s", repoPath))
	return nil
}
