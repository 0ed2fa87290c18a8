package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "volid/pkg/platform/audit"
	txcontext "volid/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. Writes join the
// transaction carried by ctx, so lifecycle events commit or roll back together
// with the record change they describe.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	// The action decides the category; callers cannot mislabel an event.
	category := audit.AuditEvent(event.Action).Category()

	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (
			id, category, action, subject, volunteer_id, actor_id,
			reason, request_id, client_ip, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		event.ID,
		string(category),
		event.Action,
		event.Subject,
		event.VolunteerID,
		event.ActorID,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, category, action, subject, volunteer_id, actor_id,
			reason, request_id, client_ip, created_at
		FROM audit_events
		WHERE subject = $1
		ORDER BY seq`, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
		)
		if err := rows.Scan(&e.ID, &category, &e.Action, &e.Subject, &e.VolunteerID, &e.ActorID,
			&e.Reason, &e.RequestID, &e.ClientIP, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
