package commands

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/callmeout/callmeout/internal/app"
	"github.com/callmeout/callmeout/internal/utils"
)

// maxPayloadPreview keeps the events table readable on one screen
const maxPayloadPreview = 60

// EventsCommand returns the CLI command that inspects the audit log. With no
// arguments it lists recent events; with an event id it shows that event.
func EventsCommand() *cli.Command {
	return &cli.Command{
		Name:      "events",
		Usage:     "List recent audit log events, or show one by id",
		ArgsUsage: "[event-id]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of events to show",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:  "count",
				Usage: "Print only the total number of recorded events",
			},
		},
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			if c.Bool("count") {
				total, err := application.Audit.Count(c.Context)
				if err != nil {
					utils.PrintError(fmt.Sprintf("Failed to count events: %s", err))
					return fmt.Errorf("counting events: %w", err)
				}
				fmt.Println(total)
				return nil
			}

			if id := c.Args().First(); id != "" {
				return showEvent(c, application, id)
			}

			events, err := application.Audit.ListRecent(c.Context, c.Int("limit"))
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to list events: %s", err))
				return fmt.Errorf("listing events: %w", err)
			}

			if len(events) == 0 {
				utils.PrintInfo("No events recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(events))
			for _, event := range events {
				rows = append(rows, []string{
					event.ID,
					event.EventType,
					truncate(event.Payload, maxPayloadPreview),
					event.CreatedAt.Format(time.RFC3339),
				})
			}

			opts := utils.DefaultTableOptions()
			opts.Title = "Audit Events"
			utils.PrintTable([]string{"ID", "Type", "Payload", "Created At"}, rows, opts)
			return nil
		},
	}
}

// showEvent prints a single event with its full payload
func showEvent(c *cli.Context, application *app.App, id string) error {
	event, err := application.Audit.Get(c.Context, id)
	if err != nil {
		utils.PrintError(fmt.Sprintf("Failed to get event: %s", err))
		return fmt.Errorf("getting event: %w", err)
	}

	utils.PrintHeading("Audit Event")
	utils.PrintKeyValue("ID", event.ID)
	utils.PrintKeyValue("Type", event.EventType)
	utils.PrintKeyValue("Created At", event.CreatedAt.Format(time.RFC3339))
	utils.PrintKeyValue("Payload", event.Payload)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
