package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/callmeout/callmeout/internal/app"
	"github.com/callmeout/callmeout/internal/utils"
)

// ServeCommand returns the CLI command that runs the daemon
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the analysis daemon on a unix socket",
		Description: "Binds the daemon socket and serves analyze_diff and ping requests " +
			"until interrupted. Without CALLMEOUT_MODEL_PATH set, requests are answered " +
			"with deterministic stub results.",
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			utils.PrintInfo("Listening on " + application.Config.Server.SocketPath)
			if application.Analyzer == nil {
				utils.PrintWarning("No model loaded, serving stub results")
			}

			if err := application.Server.ListenAndServe(ctx); err != nil {
				return fmt.Errorf("server failed: %w", err)
			}

			utils.PrintSuccess("Daemon stopped")
			return nil
		},
	}
}
