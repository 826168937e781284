// Package protocol defines the newline-delimited JSON frames exchanged over
// the daemon socket.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Request types accepted by the daemon.
const (
	TypePing        = "ping"
	TypeAnalyzeDiff = "analyze_diff"
)

// Response types produced by the daemon.
const (
	TypePong           = "pong"
	TypeAnalysisResult = "analysis_result"
	TypeError          = "error"
)

// Request is the outer envelope of an incoming frame.
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AnalyzeDiffPayload carries one diff to analyze.
type AnalyzeDiffPayload struct {
	Diff         string   `json:"diff"`
	FilesTouched []string `json:"files_touched"`
	ActiveFile   string   `json:"active_file"`
	Trigger      string   `json:"trigger"`
}

// Response is the outer envelope of an outgoing frame.
type Response struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload carries a request-scoped failure message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// AnalysisResult is the structured outcome of a diff analysis.
type AnalysisResult struct {
	Summary          []string          `json:"summary"`
	RiskLevel        string            `json:"risk_level"`
	RiskReasons      []string          `json:"risk_reasons"`
	ImpactedFiles    []ImpactedFile    `json:"impacted_files"`
	ImpactedSymbols  []ImpactedSymbol  `json:"impacted_symbols"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
	Confidence       float64           `json:"confidence"`
}

// ImpactedFile scores one changed file, derived from line-change volume.
type ImpactedFile struct {
	Path  string   `json:"path"`
	Score float64  `json:"score"`
	Why   []string `json:"why"`
}

// ImpactedSymbol is reserved for symbol-level analysis.
type ImpactedSymbol struct {
	Name  string  `json:"name"`
	Kind  string  `json:"kind"`
	File  string  `json:"file"`
	Score float64 `json:"score"`
}

// SuggestedAction is a short follow-up the model recommends.
type SuggestedAction struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

// ParseRequest decodes a single request line. It rejects frames whose type
// is unknown and analyze frames whose payload does not decode.
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}

	switch req.Type {
	case TypePing, TypeAnalyzeDiff:
		return &req, nil
	default:
		return nil, fmt.Errorf("unknown request type %q", req.Type)
	}
}

// AnalyzePayload decodes the analyze_diff payload of a parsed request.
func (r *Request) AnalyzePayload() (*AnalyzeDiffPayload, error) {
	if r.Type != TypeAnalyzeDiff {
		return nil, fmt.Errorf("request type %q has no analyze payload", r.Type)
	}
	if len(r.Payload) == 0 {
		return nil, fmt.Errorf("analyze_diff request missing payload")
	}

	var payload AnalyzeDiffPayload
	if err := json.Unmarshal(r.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decoding analyze_diff payload: %w", err)
	}
	return &payload, nil
}

// Pong builds a pong response frame.
func Pong() Response {
	return Response{Type: TypePong}
}

// Result wraps an analysis result in a response frame.
func Result(result *AnalysisResult) Response {
	return Response{Type: TypeAnalysisResult, Payload: result}
}

// Error builds an error response frame.
func Error(message string) Response {
	return Response{Type: TypeError, Payload: ErrorPayload{Message: message}}
}

// Encode serializes a response as one newline-terminated frame.
func (r Response) Encode() ([]byte, error) {
	out, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return append(out, '\n'), nil
}
