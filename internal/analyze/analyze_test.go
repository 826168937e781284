package analyze

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callmeout/callmeout/internal/diff"
	"github.com/callmeout/callmeout/internal/loggy"
)

type fakeCompleter struct {
	response string
	err      error

	gotSystem string
	gotUser   string
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	f.gotSystem = systemPrompt
	f.gotUser = userMessage
	return f.response, f.err
}

func TestAnalyzeHappyPath(t *testing.T) {
	completer := &fakeCompleter{
		response: `{"summary": ["renamed handler"], "risk_level": "med", "confidence": 0.8}`,
	}
	analyzer := New(completer, loggy.NewNoopLogger())

	files := []diff.FileChange{{Path: "handler.go", AddedLines: 4, RemovedLines: 4}}
	result, err := analyzer.Analyze(context.Background(), files, "raw diff text")
	require.NoError(t, err)

	assert.Equal(t, SystemPrompt, completer.gotSystem)
	assert.Contains(t, completer.gotUser, "handler.go (+4 -4)")
	assert.Contains(t, completer.gotUser, "raw diff text")

	assert.Equal(t, []string{"renamed handler"}, result.Summary)
	assert.Equal(t, "med", result.RiskLevel)
	assert.Equal(t, 0.8, result.Confidence)
	require.Len(t, result.ImpactedFiles, 1)
	assert.Equal(t, 0.3, result.ImpactedFiles[0].Score)
}

func TestAnalyzeCompletionFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("backend unavailable")}
	analyzer := New(completer, loggy.NewNoopLogger())

	_, err := analyzer.Analyze(context.Background(), nil, "diff")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestAnalyzeGarbageOutputStillYieldsResult(t *testing.T) {
	completer := &fakeCompleter{response: "I cannot help with that."}
	analyzer := New(completer, loggy.NewNoopLogger())

	files := []diff.FileChange{{Path: "a.go", AddedLines: 1}}
	result, err := analyzer.Analyze(context.Background(), files, "diff")
	require.NoError(t, err)

	assert.Equal(t, []string{"Changes analyzed (LLM parse error)"}, result.Summary)
	assert.Equal(t, "low", result.RiskLevel)
	require.Len(t, result.ImpactedFiles, 1)
}

func TestStubResult(t *testing.T) {
	files := []diff.FileChange{
		{Path: "x.ts", AddedLines: 2, RemovedLines: 1},
		{Path: "y.ts", AddedLines: 100, RemovedLines: 0},
	}

	result := StubResult(files)
	require.Len(t, result.Summary, 2)
	assert.Equal(t, "Stub: 2 file(s) changed", result.Summary[0])
	assert.Equal(t, "low", result.RiskLevel)
	assert.Equal(t, []string{"LLM not loaded"}, result.RiskReasons)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.SuggestedActions)

	require.Len(t, result.ImpactedFiles, 2)
	for _, f := range result.ImpactedFiles {
		assert.Equal(t, 0.5, f.Score)
	}
	assert.Equal(t, []string{"+2 -1 lines"}, result.ImpactedFiles[0].Why)
}
