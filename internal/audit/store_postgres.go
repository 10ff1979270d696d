package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "balangay/pkg/domain"
	txcontext "balangay/pkg/platform/tx"
)

// Store is the audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// PostgresStore appends audit events to the audit_events table. Writes pick
// up an enclosing transaction from context so audit rows commit or roll
// back together with the operation they describe.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes one audit event. Idempotent via ON CONFLICT DO NOTHING.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_events (id, action, principal_id, subject, detail, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	var principalID *uuid.UUID
	if !event.PrincipalID.IsNil() {
		pid := uuid.UUID(event.PrincipalID)
		principalID = &pid
	}

	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		event.Action,
		principalID,
		event.Subject,
		event.Detail,
		event.RequestID,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByPrincipal returns events for one principal, most recent first.
func (s *PostgresStore) ListByPrincipal(ctx context.Context, principalID id.PrincipalID) ([]Event, error) {
	query := `
		SELECT id, action, principal_id, subject, detail, request_id, occurred_at
		FROM audit_events
		WHERE principal_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(principalID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			event       Event
			principalID *uuid.UUID
		)
		err := rows.Scan(
			&event.ID,
			&event.Action,
			&principalID,
			&event.Subject,
			&event.Detail,
			&event.RequestID,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if principalID != nil {
			event.PrincipalID = id.PrincipalID(*principalID)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
