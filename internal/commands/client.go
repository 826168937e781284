package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/callmeout/callmeout/internal/protocol"
)

// requestTimeout bounds one request/response exchange with the daemon.
// Inference on CPU can be slow, so the window is wide.
const requestTimeout = 5 * time.Minute

// roundTrip dials the daemon socket, sends a single request frame, and
// reads one response frame.
func roundTrip(socketPath string, req protocol.Request) (*protocol.Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dialing daemon at %s (is it running?): %w", socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(requestTimeout)); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	frame, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	if _, err := conn.Write(append(frame, '\n')); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	reader := bufio.NewReaderSize(conn, 1024*1024)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var resp struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &protocol.Response{Type: resp.Type, Payload: resp.Payload}, nil
}

// decodePayload unmarshals a response payload previously captured as raw JSON.
func decodePayload(resp *protocol.Response, out any) error {
	raw, ok := resp.Payload.(json.RawMessage)
	if !ok {
		return fmt.Errorf("response has no payload")
	}
	return json.Unmarshal(raw, out)
}
