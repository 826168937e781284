// Package audit records daemon activity in a local SQLite event log
package audit

import (
	"time"
)

// Event types recorded by the daemon
const (
	EventAnalyzeRequest = "analyze_request"
	EventPing           = "ping"
	EventServerStart    = "server_start"
	EventServerStop     = "server_stop"
)

// Event is a single audit log entry
type Event struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
