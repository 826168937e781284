package analyze

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/callmeout/callmeout/internal/diff"
)

func TestBuildPromptIncludesFileSummary(t *testing.T) {
	files := []diff.FileChange{
		{Path: "src/foo.ts", AddedLines: 5, RemovedLines: 2},
		{Path: "b.go", AddedLines: 1, RemovedLines: 0},
	}

	prompt := BuildPrompt(files, "diff content")
	assert.Contains(t, prompt, "Files changed:")
	assert.Contains(t, prompt, "src/foo.ts (+5 -2)")
	assert.Contains(t, prompt, "b.go (+1 -0)")
	assert.Contains(t, prompt, "diff content")
}

func TestBuildPromptNoFiles(t *testing.T) {
	prompt := BuildPrompt(nil, "diff content here")
	assert.Contains(t, prompt, "Files changed:")
	assert.Contains(t, prompt, "diff content here")
}

func TestBuildPromptTruncatesLargeDiff(t *testing.T) {
	prompt := BuildPrompt(nil, strings.Repeat("x", 5000))
	assert.Contains(t, prompt, truncationSuffix)
	assert.NotContains(t, prompt, strings.Repeat("x", 3001))
}

func TestBuildPromptShortDiffUntouched(t *testing.T) {
	raw := strings.Repeat("y", 3000)
	prompt := BuildPrompt(nil, raw)
	assert.Contains(t, prompt, raw)
	assert.NotContains(t, prompt, truncationSuffix)
}

func TestBuildPromptTruncatesByRunesNotBytes(t *testing.T) {
	// 3001 three-byte runes: byte-counted truncation would split one.
	raw := strings.Repeat("界", 3001)
	prompt := BuildPrompt(nil, raw)
	assert.Contains(t, prompt, truncationSuffix)
	assert.Contains(t, prompt, strings.Repeat("界", 3000))
	assert.True(t, strings.Contains(prompt, strings.Repeat("界", 3000)+truncationSuffix))
}

func TestBuildPromptDeterministic(t *testing.T) {
	files := []diff.FileChange{{Path: "a.go", AddedLines: 3, RemovedLines: 1}}
	assert.Equal(t, BuildPrompt(files, "same"), BuildPrompt(files, "same"))
}

func TestBuildPromptFencesDiff(t *testing.T) {
	prompt := BuildPrompt(nil, "body")
	assert.Contains(t, prompt, "Diff:\n```\nbody\n```")
}
