package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "carreg/pkg/platform/audit"
	txcontext "carreg/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the
// outbox relay.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	Timestamp     string `json:"timestamp"`
	Subject       string `json:"subject"`
	Action        string `json:"action"`
	TransactionID string `json:"transaction_id,omitempty"`
	CompanyID     string `json:"company_id,omitempty"`
	Decision      string `json:"decision,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	ActorID       string `json:"actor_id,omitempty"`
}

// OutboxEntry is one unpublished row handed to the relay.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

const aggregateVehicle = "vehicle"

// Append writes an audit event to the outbox table. It joins a SQL
// transaction carried in ctx, if any.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	payload, err := json.Marshal(outboxPayload{
		ID:            eventID.String(),
		Category:      string(category),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Subject:       event.Subject,
		Action:        event.Action,
		TransactionID: event.TransactionID,
		CompanyID:     event.CompanyID,
		Decision:      event.Decision,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
		ActorID:       event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateVehicle,
		event.Subject,
		event.Action,
		payload,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListBySubject returns the events recorded for a vehicle, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM outbox
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, aggregateVehicle, subject)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode outbox payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		events = append(events, audit.Event{
			Category:      audit.EventCategory(p.Category),
			Timestamp:     ts,
			Subject:       p.Subject,
			Action:        p.Action,
			TransactionID: p.TransactionID,
			CompanyID:     p.CompanyID,
			Decision:      p.Decision,
			Reason:        p.Reason,
			RequestID:     p.RequestID,
			ActorID:       p.ActorID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

// FetchUnpublished returns up to limit rows not yet relayed, oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the given rows as relayed.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	query := `UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := s.db.ExecContext(ctx, query, s.now(), pq.Array(raw)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
