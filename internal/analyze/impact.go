package analyze

import (
	"fmt"

	"github.com/callmeout/callmeout/internal/diff"
	"github.com/callmeout/callmeout/internal/protocol"
)

// NormalizeScore maps total changed lines to a banded impact score.
func NormalizeScore(lines int) float64 {
	switch {
	case lines <= 10:
		return 0.3
	case lines <= 50:
		return 0.6
	default:
		return 0.9
	}
}

// ImpactedFiles derives one scored entry per file change, preserving order.
// Scores come from line-change volume only, never from model output.
func ImpactedFiles(files []diff.FileChange) []protocol.ImpactedFile {
	impacted := make([]protocol.ImpactedFile, 0, len(files))
	for _, f := range files {
		impacted = append(impacted, protocol.ImpactedFile{
			Path:  f.Path,
			Score: NormalizeScore(f.TotalLines()),
			Why:   []string{fmt.Sprintf("+%d -%d lines", f.AddedLines, f.RemovedLines)},
		})
	}
	return impacted
}
