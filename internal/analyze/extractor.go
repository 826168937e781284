package analyze

import (
	"encoding/json"
	"strings"

	"github.com/callmeout/callmeout/internal/diff"
	"github.com/callmeout/callmeout/internal/protocol"
)

// Defaults applied during extraction. Each field degrades independently; a
// malformed field never invalidates its siblings.
const (
	defaultRiskLevel  = "low"
	defaultConfidence = 0.75
)

var (
	fallbackSummary = []string{"Changes analyzed (LLM parse error)"}
	defaultSummary  = []string{"Analysis complete"}
)

// Extract turns raw model output into a typed result. It is total: any
// input, including empty or non-JSON text, yields a usable AnalysisResult.
// Impacted files come from the parsed diff, one entry per file in order.
func Extract(raw string, files []diff.FileChange) *protocol.AnalysisResult {
	parsed, ok := parseCandidate(raw)
	if !ok {
		parsed = map[string]any{
			"summary":           toAnySlice(fallbackSummary),
			"risk_level":        defaultRiskLevel,
			"risk_reasons":      []any{},
			"suggested_actions": []any{},
		}
	}

	return &protocol.AnalysisResult{
		Summary:          stringSlice(parsed["summary"], defaultSummary),
		RiskLevel:        stringValue(parsed["risk_level"], defaultRiskLevel),
		RiskReasons:      stringSlice(parsed["risk_reasons"], []string{}),
		ImpactedFiles:    ImpactedFiles(files),
		ImpactedSymbols:  []protocol.ImpactedSymbol{},
		SuggestedActions: actionSlice(parsed["suggested_actions"]),
		Confidence:       floatValue(parsed["confidence"], defaultConfidence),
	}
}

// parseCandidate isolates the JSON candidate and decodes it. The candidate
// is the inclusive span between the first '{' and the last '}', which also
// strips markdown fences and surrounding prose; without such a span the full
// text is tried as-is.
func parseCandidate(raw string) (map[string]any, bool) {
	candidate := raw
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end >= 0 && start < end {
		candidate = raw[start : end+1]
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func stringValue(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func floatValue(v any, fallback float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return fallback
}

func stringSlice(v any, fallback []string) []string {
	arr, ok := v.([]any)
	if !ok {
		return fallback
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// actionSlice collects suggested actions; entries without a label are
// dropped, a missing explanation defaults to empty.
func actionSlice(v any) []protocol.SuggestedAction {
	arr, ok := v.([]any)
	if !ok {
		return []protocol.SuggestedAction{}
	}

	out := make([]protocol.SuggestedAction, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		label, ok := obj["label"].(string)
		if !ok {
			continue
		}
		explanation, _ := obj["explanation"].(string)
		out = append(out, protocol.SuggestedAction{Label: label, Explanation: explanation})
	}
	return out
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
