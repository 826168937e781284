package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/callmeout/callmeout/internal/app"
	"github.com/callmeout/callmeout/internal/diff"
	"github.com/callmeout/callmeout/internal/protocol"
	"github.com/callmeout/callmeout/internal/utils"
)

// AnalyzeCommand returns the CLI command that submits a diff to the daemon
func AnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Send a unified diff to the daemon for analysis",
		Description: "Reads a unified diff from a file or stdin and prints the daemon's " +
			"risk assessment. Pipe `git diff` straight in:\n\n" +
			"   git diff | callmeout analyze",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read the diff from a file instead of stdin",
			},
			&cli.StringFlag{
				Name:  "active-file",
				Usage: "File the editor currently has focused",
			},
			&cli.StringFlag{
				Name:  "trigger",
				Usage: "What prompted the analysis (save, commit, manual)",
				Value: "manual",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw JSON result instead of a table",
			},
		},
		Action: func(c *cli.Context) error {
			application, err := app.FromContext(c)
			if err != nil {
				return err
			}

			rawDiff, err := readDiff(c.String("file"))
			if err != nil {
				return err
			}
			if strings.TrimSpace(rawDiff) == "" {
				utils.PrintWarning("Empty diff, nothing to analyze")
				return nil
			}

			payload, err := json.Marshal(protocol.AnalyzeDiffPayload{
				Diff:         rawDiff,
				ActiveFile:   c.String("active-file"),
				FilesTouched: touchedFiles(rawDiff),
				Trigger:      c.String("trigger"),
			})
			if err != nil {
				return fmt.Errorf("encoding payload: %w", err)
			}

			resp, err := roundTrip(application.Config.Server.SocketPath, protocol.Request{
				Type:    protocol.TypeAnalyzeDiff,
				Payload: payload,
			})
			if err != nil {
				utils.PrintError(fmt.Sprintf("Analysis failed: %s", err))
				return err
			}

			switch resp.Type {
			case protocol.TypeAnalysisResult:
				var result protocol.AnalysisResult
				if err := decodePayload(resp, &result); err != nil {
					return fmt.Errorf("decoding analysis result: %w", err)
				}
				if c.Bool("json") {
					return printResultJSON(&result)
				}
				printResult(&result)
				return nil
			case protocol.TypeError:
				var errPayload protocol.ErrorPayload
				if err := decodePayload(resp, &errPayload); err != nil {
					return fmt.Errorf("decoding error response: %w", err)
				}
				utils.PrintError("Daemon error: " + errPayload.Message)
				return fmt.Errorf("daemon error: %s", errPayload.Message)
			default:
				return fmt.Errorf("unexpected response type %q", resp.Type)
			}
		},
	}
}

// touchedFiles derives the list of changed paths from the diff itself
func touchedFiles(rawDiff string) []string {
	changes := diff.Parse(rawDiff)
	if len(changes) == 0 {
		return nil
	}
	paths := make([]string, 0, len(changes))
	for _, change := range changes {
		paths = append(paths, change.Path)
	}
	return paths
}

func readDiff(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading diff file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading diff from stdin: %w", err)
	}
	return string(data), nil
}

func printResultJSON(result *protocol.AnalysisResult) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func printResult(result *protocol.AnalysisResult) {
	utils.PrintHeading("Analysis Result")
	utils.PrintKeyValue("Risk", colorRisk(result.RiskLevel))
	utils.PrintKeyValue("Confidence", fmt.Sprintf("%.2f", result.Confidence))
	fmt.Println()

	if len(result.Summary) > 0 {
		utils.PrintHeading("Summary")
		utils.PrintList(result.Summary, "")
		fmt.Println()
	}

	if len(result.RiskReasons) > 0 {
		utils.PrintHeading("Risk Reasons")
		utils.PrintList(result.RiskReasons, "")
		fmt.Println()
	}

	if len(result.ImpactedFiles) > 0 {
		rows := make([][]string, 0, len(result.ImpactedFiles))
		for _, f := range result.ImpactedFiles {
			rows = append(rows, []string{
				f.Path,
				fmt.Sprintf("%.1f", f.Score),
				strings.Join(f.Why, ", "),
			})
		}
		opts := utils.DefaultTableOptions()
		opts.Title = "Impacted Files"
		utils.PrintTable([]string{"Path", "Score", "Why"}, rows, opts)
		fmt.Println()
	}

	if len(result.SuggestedActions) > 0 {
		utils.PrintHeading("Suggested Actions")
		for _, action := range result.SuggestedActions {
			line := action.Label
			if action.Explanation != "" {
				line += ": " + action.Explanation
			}
			utils.PrintList([]string{line}, "")
		}
	}
}

func colorRisk(level string) string {
	switch strings.ToLower(level) {
	case "high":
		return color.RedString("%s", level)
	case "med", "medium":
		return color.YellowString("%s", level)
	default:
		return color.GreenString("%s", level)
	}
}
