package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/api"
	"github.com/deepnoodle-ai/skillet/mcpserver"
)

// mcpSyncInterval is how often served MCP tools are reconciled with the
// registry.
const mcpSyncInterval = 2 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the skill editor API",
	Long: `Serve the skill editor HTTP API. With --watch, definition files in the
watch directory are registered as they change. With --mcp, the MCP
streamable HTTP transport is served at /mcp.

Examples:
  skillet serve --addr 127.0.0.1:8080
  skillet serve --watch --watch-dir ./skills --mcp`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if flags.Changed("addr") {
				a.cfg.Server.Addr, _ = flags.GetString("addr")
			}
			if flags.Changed("watch") {
				a.cfg.Watch.Enabled, _ = flags.GetBool("watch")
			}
			if flags.Changed("watch-dir") {
				a.cfg.Watch.Dir, _ = flags.GetString("watch-dir")
			}
			withMCP, _ := flags.GetBool("mcp")

			harness, err := a.cfg.NewHarness(a.logger)
			if err != nil {
				return err
			}
			runner, err := a.runner()
			if err != nil {
				return err
			}
			handler := api.NewHandler(api.Options{
				Registry:    a.registry,
				Runner:      runner,
				Tester:      harness,
				CORSOrigins: a.cfg.Server.CORSOrigins,
				Logger:      a.logger,
			})

			g, gctx := errgroup.WithContext(ctx)
			router := chi.NewRouter()
			if withMCP {
				srv := mcpserver.New(mcpserver.Options{Registry: a.registry, Runner: runner, Logger: a.logger})
				router.Handle("/mcp", srv.HTTPHandler())
				g.Go(func() error {
					srv.SyncEvery(gctx, mcpSyncInterval)
					return nil
				})
			}
			router.Mount("/", handler.Router())

			if a.cfg.Watch.Enabled {
				watcher, err := skillet.NewWatcher(a.cfg.WatcherOptions(a.registry, a.logger))
				if err != nil {
					return err
				}
				n, err := watcher.Sync(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Sprintf("Registered %d skills from %s", n, a.cfg.Watch.Dir))
				g.Go(func() error { return watcher.Run(gctx) })
			}

			fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Sprintf("Skill editor listening on http://%s", a.cfg.Server.Addr))
			g.Go(func() error { return api.Serve(gctx, a.cfg.Server.Addr, router, a.logger) })
			return g.Wait()
		})
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve registered skills as MCP tools over stdio",
	Long: `Serve every registered skill as a Model Context Protocol tool on stdin and
stdout, plus a run_turn tool that selects skills for a message.

Logs go to stderr so that stdout carries only protocol messages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		noTurn, _ := cmd.Flags().GetBool("no-turn")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			opts := mcpserver.Options{Registry: a.registry, Logger: a.logger, Version: rootCmd.Version}
			if !noTurn {
				runner, err := a.runner()
				if err != nil {
					return err
				}
				opts.Runner = runner
			}
			srv := mcpserver.New(opts)
			go srv.SyncEvery(ctx, mcpSyncInterval)
			a.logger.Info("serving mcp over stdio", "tools", a.registry.Len())
			return srv.ServeStdio()
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	serveCmd.Flags().Bool("watch", false, "Hot reload skill definitions from the watch directory")
	serveCmd.Flags().String("watch-dir", "", "Directory of skill definition files")
	serveCmd.Flags().Bool("mcp", false, "Also serve MCP over streamable HTTP at /mcp")
	mcpCmd.Flags().Bool("no-turn", false, "Do not expose the run_turn tool")
	rootCmd.AddCommand(serveCmd, mcpCmd)
}
