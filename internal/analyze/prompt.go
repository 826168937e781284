package analyze

import (
	"fmt"
	"strings"

	"github.com/callmeout/callmeout/internal/diff"
)

// SystemPrompt instructs the model to answer with a bare JSON object. The
// extractor tolerates deviation, so the instruction leans strict.
const SystemPrompt = `You are a senior software engineer reviewing a git diff. ` +
	`Analyze the changes and respond with ONLY a JSON object (no markdown, no extra text) in this exact format:
{
  "summary": ["one sentence description of change 1", "one sentence description of change 2"],
  "risk_level": "low",
  "risk_reasons": ["reason why this is risky"],
  "suggested_actions": [{"label": "Short action title", "explanation": "Why to do this"}]
}
risk_level must be exactly: low, med, or high. Keep summary to max 3 bullets. Max 2 risk_reasons. Max 3 suggested_actions.`

// maxDiffChars bounds the diff excerpt embedded in the prompt, counted in
// Unicode scalar values rather than bytes.
const maxDiffChars = 3000

// truncationSuffix marks a diff excerpt that was cut short.
const truncationSuffix = "...[truncated]"

// BuildPrompt renders the user message for one analysis: a per-file change
// summary followed by a fenced, size-bounded diff excerpt. Deterministic for
// a given input.
func BuildPrompt(files []diff.FileChange, rawDiff string) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("%s (+%d -%d)", f.Path, f.AddedLines, f.RemovedLines))
	}

	excerpt := rawDiff
	if runes := []rune(rawDiff); len(runes) > maxDiffChars {
		excerpt = string(runes[:maxDiffChars]) + truncationSuffix
	}

	return fmt.Sprintf("Files changed:\n%s\n\nDiff:\n```\n%s\n```",
		strings.Join(lines, "\n"), excerpt)
}
