// Package cli implements the gitscape command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gitscape/gitscape/pkg/buildinfo"
	"github.com/gitscape/gitscape/pkg/cache"
	"github.com/gitscape/gitscape/pkg/gitsource"
	"github.com/gitscape/gitscape/pkg/layout"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "gitscape"

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
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gitscape",
		Short: "Gitscape visualizes a git repository as a living graph",
		Long: `Gitscape turns a git repository into a spatial graph: directories and
files laid out by a force simulation or circle packing, with the commit
history replayed as animated flights onto the tree.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Attach the logger to the command context so command bodies and the
	// packages they call share one logger.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}

	// Register all subcommands
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Scanner Factory
// =============================================================================

// newScanner builds a repository scanner honoring the shared cache flags.
func (c *CLI) newScanner(path string, limit int, noCache bool) (*gitsource.Scanner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	opts := []gitsource.Option{gitsource.WithCache(store)}
	if limit > 0 {
		opts = append(opts, gitsource.WithCommitLimit(limit))
	}
	return gitsource.NewScanner(path, opts...), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gitscape/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// loadTuning reads a layout tuning file, falling back to the built-in
// defaults when no file is given.
func loadTuning(path string) (layout.Config, error) {
	if path == "" {
		return layout.DefaultConfig(), nil
	}
	return layout.LoadConfigFile(path)
}

// repoArg resolves the optional positional repository argument, defaulting
// to the current directory.
func repoArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
