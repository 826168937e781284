// Package server implements the unix domain socket daemon. Clients exchange
// newline-delimited JSON frames: one request line in, one response line out.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/callmeout/callmeout/internal/analyze"
	"github.com/callmeout/callmeout/internal/audit"
	"github.com/callmeout/callmeout/internal/config"
	"github.com/callmeout/callmeout/internal/diff"
	"github.com/callmeout/callmeout/internal/loggy"
	"github.com/callmeout/callmeout/internal/protocol"
	"github.com/callmeout/callmeout/internal/ulid"
)

// defaultMaxFrameSize bounds a single request line. Diffs arrive inline, so
// the limit is generous.
const defaultMaxFrameSize = 16 * 1024 * 1024

// Server accepts connections on a unix socket and serves analysis requests.
// A nil analyzer puts the server in stub mode.
type Server struct {
	cfg      *config.Config
	analyzer *analyze.Analyzer
	audit    audit.Log
	logger   *loggy.Logger

	maxFrame int

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	conns    sync.WaitGroup
}

// New creates a server. The audit log may be nil, in which case no events
// are recorded.
func New(cfg *config.Config, analyzer *analyze.Analyzer, auditLog audit.Log, logger *loggy.Logger) *Server {
	return &Server{
		cfg:      cfg,
		analyzer: analyzer,
		audit:    auditLog,
		logger:   logger,
		maxFrame: defaultMaxFrameSize,
	}
}

// ListenAndServe binds the socket and serves until the context is cancelled
// or Close is called. A stale socket file left by a previous run is removed
// before binding.
func (s *Server) ListenAndServe(ctx context.Context) error {
	socketPath := s.cfg.Server.SocketPath

	if err := removeStaleSocket(socketPath); err != nil {
		return err
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", socketPath, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is closed")
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Listening", "socket", socketPath, "stub_mode", s.analyzer == nil)
	s.record(ctx, audit.EventServerStart, map[string]any{"socket": socketPath, "stub_mode": s.analyzer == nil})

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		s.conns.Add(1)
		go s.handleConn(ctx, conn)
	}
}

// Close stops accepting connections and waits for in-flight requests to
// drain, up to the configured shutdown timeout.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.Server.ShutdownTimeout):
		s.logger.Warn("Shutdown timeout elapsed with connections still open")
	}

	s.record(context.Background(), audit.EventServerStop, struct{}{})
	s.logger.Info("Server stopped")
	return err
}

// removeStaleSocket unlinks a socket file left behind by a crashed daemon.
func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking socket path: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()

	logger := s.logger.With("conn_id", ulid.ConnID())
	logger.Debug("Connection opened")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), s.maxFrame)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.dispatch(ctx, logger, line)
		if err := s.writeResponse(conn, resp); err != nil {
			logger.Warn("Failed to write response", "error", err)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		// An oversized frame still gets one error response before the
		// connection terminates.
		if errors.Is(err, bufio.ErrTooLong) {
			logger.Warn("Request exceeds maximum frame size", "max_bytes", s.maxFrame)
			resp := protocol.Error(fmt.Sprintf("request exceeds maximum frame size of %d bytes", s.maxFrame))
			if werr := s.writeResponse(conn, resp); werr != nil {
				logger.Warn("Failed to write response", "error", werr)
			}
			return
		}
		logger.Debug("Connection read ended", "error", err)
	}
	logger.Debug("Connection closed")
}

// dispatch turns one request line into one response frame. Request-scoped
// failures become error frames, the connection stays usable.
func (s *Server) dispatch(ctx context.Context, logger *loggy.Logger, line []byte) protocol.Response {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		logger.Debug("Rejected request", "error", err)
		return protocol.Error(err.Error())
	}

	switch req.Type {
	case protocol.TypePing:
		s.record(ctx, audit.EventPing, struct{}{})
		return protocol.Pong()
	case protocol.TypeAnalyzeDiff:
		return s.handleAnalyze(ctx, logger, req)
	default:
		return protocol.Error(fmt.Sprintf("unknown request type %q", req.Type))
	}
}

func (s *Server) handleAnalyze(ctx context.Context, logger *loggy.Logger, req *protocol.Request) protocol.Response {
	payload, err := req.AnalyzePayload()
	if err != nil {
		logger.Debug("Rejected analyze request", "error", err)
		return protocol.Error(err.Error())
	}

	requestID := ulid.RequestID()
	logger = logger.With("request_id", requestID)

	s.record(ctx, audit.EventAnalyzeRequest, map[string]any{
		"request_id":    requestID,
		"trigger":       payload.Trigger,
		"active_file":   payload.ActiveFile,
		"files_touched": len(payload.FilesTouched),
		"diff_bytes":    len(payload.Diff),
	})

	files := diff.Parse(payload.Diff)
	logger.Info("Analyzing diff", "files", len(files), "trigger", payload.Trigger)

	if s.analyzer == nil {
		return protocol.Result(analyze.StubResult(files))
	}

	result, err := s.runInference(ctx, files, payload.Diff)
	if err != nil {
		logger.Error("Analysis failed", "error", err)
		return protocol.Error(err.Error())
	}

	return protocol.Result(result)
}

// runInference executes the analysis on its own goroutine so a panic inside
// the native backend takes down the request, not the daemon.
func (s *Server) runInference(ctx context.Context, files []diff.FileChange, rawDiff string) (result *protocol.AnalysisResult, err error) {
	type outcome struct {
		result *protocol.AnalysisResult
		err    error
	}

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- outcome{err: fmt.Errorf("inference panicked: %v", p)}
			}
		}()
		res, err := s.analyzer.Analyze(ctx, files, rawDiff)
		ch <- outcome{result: res, err: err}
	}()

	out := <-ch
	return out.result, out.err
}

func (s *Server) writeResponse(conn net.Conn, resp protocol.Response) error {
	frame, err := resp.Encode()
	if err != nil {
		return err
	}

	_, err = conn.Write(frame)
	return err
}

// record stores an audit event, best effort. The audit service logs its own
// failures.
func (s *Server) record(ctx context.Context, eventType string, payload any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, eventType, payload)
}
