package commands

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/callmeout/callmeout/internal/app"
	"github.com/callmeout/callmeout/internal/protocol"
	"github.com/callmeout/callmeout/internal/utils"
)

// PingCommand returns the CLI command that checks daemon liveness
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check that the daemon is running",
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			socketPath := application.Config.Server.SocketPath

			start := time.Now()
			resp, err := roundTrip(socketPath, protocol.Request{Type: protocol.TypePing})
			if err != nil {
				utils.PrintError(fmt.Sprintf("Ping failed: %s", err))
				return err
			}
			elapsed := time.Since(start)

			if resp.Type != protocol.TypePong {
				utils.PrintError(fmt.Sprintf("Unexpected response type: %s", resp.Type))
				return fmt.Errorf("unexpected response type %q", resp.Type)
			}

			utils.PrintSuccess(fmt.Sprintf("Daemon is up at %s (%s)",
				color.YellowString("%s", socketPath), elapsed.Round(time.Microsecond)))
			return nil
		},
	}
}
