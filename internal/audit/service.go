package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/callmeout/callmeout/internal/loggy"
)

// defaultQueryTimeout bounds repository calls when no timeout is configured.
const defaultQueryTimeout = 30 * time.Second

// Log records daemon activity. Recording is best-effort from the caller's
// point of view, failures must never block request handling.
type Log interface {
	Record(ctx context.Context, eventType string, payload any) error
}

// Service provides audit logging backed by a repository
type Service struct {
	repo         Repository
	logger       *loggy.Logger
	maxRetries   int
	queryTimeout time.Duration
}

// NewService creates a new audit service. Every repository call is bounded
// by queryTimeout; zero or negative falls back to the default.
func NewService(db *sql.DB, queryTimeout time.Duration, logger *loggy.Logger) *Service {
	return &Service{
		repo:         NewSQLRepository(db, logger),
		logger:       logger,
		maxRetries:   3,
		queryTimeout: normalizeTimeout(queryTimeout),
	}
}

// NewServiceWithRepository creates a new audit service with a custom repository
func NewServiceWithRepository(repo Repository, logger *loggy.Logger) *Service {
	return &Service{
		repo:         repo,
		logger:       logger,
		maxRetries:   3,
		queryTimeout: defaultQueryTimeout,
	}
}

func normalizeTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultQueryTimeout
	}
	return d
}

// Record persists an audit event. The payload is serialized to JSON.
// Writes are retried with exponential backoff so a transient SQLITE_BUSY
// does not drop the event.
func (s *Service) Record(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling audit payload: %w", err)
	}

	event := &Event{
		EventType: eventType,
		Payload:   string(data),
	}

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
		return s.repo.CreateEvent(opCtx, event)
	}

	err = backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.maxRetries)))
	if err != nil {
		s.logger.Warn("Failed to record audit event", "event_type", eventType, "error", err)
		return fmt.Errorf("recording audit event: %w", err)
	}

	s.logger.Debug("Recorded audit event", "event_type", eventType, "id", event.ID)
	return nil
}

// Get returns a single event by its id
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.repo.GetEvent(opCtx, id)
}

// ListRecent returns the most recent events, newest first
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.repo.ListRecentEvents(opCtx, limit)
}

// Count returns the total number of recorded events
func (s *Service) Count(ctx context.Context) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.repo.CountEvents(opCtx)
}
