package events

import (
	"context"
	"database/sql"

	"vidria/pkg/errors"
)

type Repository interface {
	Insert(ctx context.Context, event *Event) (int64, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	GetSnapshot(ctx context.Context, id int64) ([]byte, error)
	ListByTenant(ctx context.Context, tenantToken string, limit int) ([]Event, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, event *Event) (int64, error) {
	query := `
		INSERT INTO events (received_at, tenant_token, camera, label, frigate_type,
		                    score, top_score, duration_seconds, frigate_event_id, snapshot, payload)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, NULLIF($9, ''), $10, $11)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		event.ReceivedAt,
		event.TenantToken,
		event.Camera,
		event.Label,
		event.FrigateType,
		event.Score,
		event.TopScore,
		event.DurationSeconds,
		event.FrigateEventID,
		event.Snapshot,
		nullableJSON(event.Payload),
	).Scan(&id)
	if err != nil {
		return 0, errors.ErrInternal.WithCause(err).WithDetail("message", "failed to insert event")
	}

	return id, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Event, error) {
	query := `
		SELECT id, received_at, tenant_token, camera, label,
		       COALESCE(frigate_type, ''), score, top_score, duration_seconds,
		       COALESCE(frigate_event_id, ''), payload
		FROM events
		WHERE id = $1
	`

	var e Event
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID,
		&e.ReceivedAt,
		&e.TenantToken,
		&e.Camera,
		&e.Label,
		&e.FrigateType,
		&e.Score,
		&e.TopScore,
		&e.DurationSeconds,
		&e.FrigateEventID,
		&e.Payload,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithDetail("message", "event not found")
	}
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	return &e, nil
}

// GetSnapshot loads only the snapshot bytes; they are kept out of GetByID to
// avoid dragging images through list queries.
func (r *PostgresRepository) GetSnapshot(ctx context.Context, id int64) ([]byte, error) {
	var snapshot []byte
	err := r.db.QueryRowContext(ctx, `SELECT snapshot FROM events WHERE id = $1`, id).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithDetail("message", "event not found")
	}
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return snapshot, nil
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantToken string, limit int) ([]Event, error) {
	query := `
		SELECT id, received_at, tenant_token, camera, label,
		       COALESCE(frigate_type, ''), score, top_score, duration_seconds,
		       COALESCE(frigate_event_id, ''), payload
		FROM events
		WHERE tenant_token = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, tenantToken, limit)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.ReceivedAt,
			&e.TenantToken,
			&e.Camera,
			&e.Label,
			&e.FrigateType,
			&e.Score,
			&e.TopScore,
			&e.DurationSeconds,
			&e.FrigateEventID,
			&e.Payload,
		); err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	return result, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
