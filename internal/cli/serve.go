package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitscape/gitscape/internal/server"
	"github.com/gitscape/gitscape/pkg/engine"
	"github.com/gitscape/gitscape/pkg/gitsource"
	"github.com/gitscape/gitscape/pkg/layout"
	"github.com/gitscape/gitscape/pkg/observability"
)

// serveCommand creates the serve command exposing the scene over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		layoutM string
		limit   int
		noCache bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve [repository]",
		Short: "Serve the scene as a read-only HTTP snapshot API",
		Long: `Scan the repository and expose the computed scene over HTTP for an
external renderer:

  GET /api/graph       visible nodes and links
  GET /api/positions   computed positions
  GET /api/commits     commit history and playback index (?sha= filters)
  GET /api/highlight   search matches (?q=, ?ext=)
  GET /api/node/{id}   one node with position and path to root

The pack layout is used so positions are deterministic. With --watch the
scene rebinds when the repository changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), repoArg(args), addr, layoutM, limit, noCache, watch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7373", "listen address")
	cmd.Flags().StringVar(&layoutM, "layout", "pack", "layout engine: force, pack")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of commits to scan (0 = default cap)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rescan when the repository changes")

	return cmd
}

// runServe scans, settles a layout, and blocks serving until the context is
// cancelled.
func (c *CLI) runServe(ctx context.Context, repoPath, addr, layoutM string, limit int, noCache, watch bool) error {
	logger := loggerFromContext(ctx)
	installHooks(logger)
	defer observability.Reset()

	mode, err := parseLayoutMode(layoutM)
	if err != nil {
		return err
	}

	scanner, err := c.newScanner(repoPath, limit, noCache)
	if err != nil {
		return fmt.Errorf("initialize scanner: %w", err)
	}
	res, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	e := engine.New(ctx, res.Tree, res.History, layout.DefaultConfig())
	if mode == engine.CirclePack {
		e.SwitchLayout(engine.CirclePack)
	} else {
		settle(e)
	}

	srv := server.New(e, logger)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if watch {
		w, werr := gitsource.NewWatcher(repoPath, func() {
			fresh, serr := scanner.Scan(context.Background())
			if serr != nil {
				logger.Warn("rescan failed", "err", serr)
				return
			}
			srv.Rebind(fresh.Tree, fresh.History)
			logger.Info("scene rebound", "head", fresh.HeadSHA)
		})
		if werr != nil {
			printWarning("watch disabled: %v", werr)
		} else {
			defer w.Close()
			go w.Run(ctx)
		}
	}

	printInfo("Serving %s", repoPath)
	printKeyValue("address", "http://"+addr)
	printKeyValue("nodes", fmt.Sprintf("%d", len(res.Tree.Nodes)))
	printKeyValue("commits", fmt.Sprintf("%d", res.History.Len()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
