// Package analyze turns parsed diffs into risk assessments, either through
// an inference backend or a deterministic stub.
package analyze

import (
	"context"
	"fmt"

	"github.com/callmeout/callmeout/internal/diff"
	"github.com/callmeout/callmeout/internal/loggy"
	"github.com/callmeout/callmeout/internal/protocol"
)

// Completer is the single operation the analyzer needs from an inference
// backend.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Analyzer drives the prompt → completion → extraction pipeline.
type Analyzer struct {
	completer Completer
	logger    *loggy.Logger
}

// New creates an analyzer bound to an inference backend.
func New(completer Completer, logger *loggy.Logger) *Analyzer {
	return &Analyzer{
		completer: completer,
		logger:    logger,
	}
}

// Analyze runs one diff through the backend and extracts a typed result.
// Extraction never fails; only the completion call itself can error.
func (a *Analyzer) Analyze(ctx context.Context, files []diff.FileChange, rawDiff string) (*protocol.AnalysisResult, error) {
	prompt := BuildPrompt(files, rawDiff)

	raw, err := a.completer.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("completing analysis: %w", err)
	}

	a.logger.Debug("model output received", "length", len(raw), "files", len(files))
	return Extract(raw, files), nil
}

// StubResult is the deterministic analysis used when no backend is loaded.
func StubResult(files []diff.FileChange) *protocol.AnalysisResult {
	impacted := make([]protocol.ImpactedFile, 0, len(files))
	for _, f := range files {
		impacted = append(impacted, protocol.ImpactedFile{
			Path:  f.Path,
			Score: 0.5,
			Why:   []string{fmt.Sprintf("+%d -%d lines", f.AddedLines, f.RemovedLines)},
		})
	}

	return &protocol.AnalysisResult{
		Summary: []string{
			fmt.Sprintf("Stub: %d file(s) changed", len(files)),
			"Set CALLMEOUT_MODEL_PATH to enable real analysis",
		},
		RiskLevel:        "low",
		RiskReasons:      []string{"LLM not loaded"},
		ImpactedFiles:    impacted,
		ImpactedSymbols:  []protocol.ImpactedSymbol{},
		SuggestedActions: []protocol.SuggestedAction{},
		Confidence:       0.0,
	}
}
