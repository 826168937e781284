package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/callmeout/callmeout/internal/loggy"
	"github.com/callmeout/callmeout/internal/ulid"
)

// Repository defines operations for managing audit events in the database
type Repository interface {
	// CreateEvent persists a new audit event
	CreateEvent(ctx context.Context, event *Event) error

	// GetEvent retrieves an event by ID
	GetEvent(ctx context.Context, id string) (*Event, error)

	// ListRecentEvents retrieves the most recent events, newest first
	ListRecentEvents(ctx context.Context, limit int) ([]*Event, error)

	// CountEvents returns the total number of recorded events
	CountEvents(ctx context.Context) (int64, error)
}

// SQLRepository implements the Repository interface using a SQL database
type SQLRepository struct {
	db     *sql.DB
	logger *loggy.Logger
}

// NewSQLRepository creates a new SQL repository
func NewSQLRepository(db *sql.DB, logger *loggy.Logger) *SQLRepository {
	return &SQLRepository{
		db:     db,
		logger: logger,
	}
}

// CreateEvent persists a new audit event
func (r *SQLRepository) CreateEvent(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = ulid.EventID()
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	q := squirrel.Insert("events").
		Columns("id", "event_type", "payload", "created_at").
		Values(event.ID, event.EventType, event.Payload, event.CreatedAt)

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building create event query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("executing create event query: %w", err)
	}

	return nil
}

// GetEvent retrieves an event by ID
func (r *SQLRepository) GetEvent(ctx context.Context, id string) (*Event, error) {
	q := squirrel.Select("id", "event_type", "payload", "created_at").
		From("events").
		Where(squirrel.Eq{"id": id})

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get event query: %w", err)
	}

	var event Event
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&event.ID,
		&event.EventType,
		&event.Payload,
		&event.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("event not found: %s", id)
		}
		return nil, fmt.Errorf("executing get event query: %w", err)
	}

	return &event, nil
}

// ListRecentEvents retrieves the most recent events, newest first
func (r *SQLRepository) ListRecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	q := squirrel.Select("id", "event_type", "payload", "created_at").
		From("events").
		OrderBy("created_at DESC, id DESC").
		Limit(uint64(limit))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list events query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing list events query: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.Payload,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}

	return events, nil
}

// CountEvents returns the total number of recorded events
func (r *SQLRepository) CountEvents(ctx context.Context) (int64, error) {
	q := squirrel.Select("COUNT(*)").From("events")

	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count events query: %w", err)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("executing count events query: %w", err)
	}

	return count, nil
}
