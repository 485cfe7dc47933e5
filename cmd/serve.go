package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stealth-swap/pkg/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve swap sessions over HTTP",
	Long: `Start the HTTP API a browser front end uses to drive swap sessions.

Every session holds its own swap request and visibility mode. Sessions share
the configured wallet and expire after server.session_ttl without use.

Examples:
  stealth-swap serve
  stealth-swap serve --addr 127.0.0.1:9090`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr)")
}

func runServe(cmd *cobra.Command, args []string) {
	a, err := loadApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.log.Sync()

	if err := a.cfg.RequireExecutor(); err != nil {
		printError(err)
		os.Exit(1)
	}

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	store := api.NewStore(a.cfg.Server.SessionTTL, a.cfg.Server.CleanupInterval, a.newSession, a.log)
	server := api.NewServer(store, a.catalog, a.catalog, a.log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Green("\nServing swap sessions on %s. Press Ctrl+C to stop.\n", addr)

	if err := server.ListenAndServe(ctx, addr, a.cfg.Server.ShutdownTimeout); err != nil {
		printError(err)
		os.Exit(1)
	}
}
