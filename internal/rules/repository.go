package rules

import (
	"context"
	"database/sql"

	"vidria/pkg/errors"
)

type Repository interface {
	Create(ctx context.Context, rule *Rule) (*Rule, error)
	GetByID(ctx context.Context, tenantID, ruleID int) (*Rule, error)
	ListByTenant(ctx context.Context, tenantID int) ([]Rule, error)
	FindEnabledForTenant(ctx context.Context, tenantID int, camera string) ([]Rule, error)
	Update(ctx context.Context, rule *Rule) (*Rule, error)
	SoftDelete(ctx context.Context, tenantID, ruleID int) error
	InsertHit(ctx context.Context, ruleID int, eventID int64, action string) (int64, error)
	ListHitsByTenant(ctx context.Context, tenantID, limit int) ([]Hit, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const ruleColumns = `id, tenant_id, name, enabled, is_deleted, camera, label, frigate_type,
	min_score, min_duration_seconds, custom_message, time_start, time_end, expression,
	created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, rule *Rule) (*Rule, error) {
	query := `
		INSERT INTO rules (tenant_id, name, enabled, camera, label, frigate_type,
		                   min_score, min_duration_seconds, custom_message,
		                   time_start, time_end, expression)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + ruleColumns

	return r.scanOne(r.db.QueryRowContext(ctx, query,
		rule.TenantID,
		rule.Name,
		rule.Enabled,
		rule.Camera,
		rule.Label,
		rule.FrigateType,
		rule.MinScore,
		rule.MinDurationSeconds,
		rule.CustomMessage,
		rule.TimeStart,
		rule.TimeEnd,
		rule.Expression,
	))
}

func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, ruleID int) (*Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted`
	return r.scanOne(r.db.QueryRowContext(ctx, query, ruleID, tenantID))
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID int) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE tenant_id = $1 AND NOT is_deleted ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// FindEnabledForTenant fetches enabled rules for a tenant, pushing the camera
// predicate down to the database. Rules with no camera constraint always
// match; the in-memory matcher re-checks everything.
func (r *PostgresRepository) FindEnabledForTenant(ctx context.Context, tenantID int, camera string) ([]Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE tenant_id = $1
		  AND enabled
		  AND NOT is_deleted
		  AND (camera IS NULL OR LOWER(camera) = LOWER($2))
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, camera)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *PostgresRepository) Update(ctx context.Context, rule *Rule) (*Rule, error) {
	query := `
		UPDATE rules
		SET name = $3, enabled = $4, camera = $5, label = $6, frigate_type = $7,
		    min_score = $8, min_duration_seconds = $9, custom_message = $10,
		    time_start = $11, time_end = $12, expression = $13, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted
		RETURNING ` + ruleColumns

	return r.scanOne(r.db.QueryRowContext(ctx, query,
		rule.ID,
		rule.TenantID,
		rule.Name,
		rule.Enabled,
		rule.Camera,
		rule.Label,
		rule.FrigateType,
		rule.MinScore,
		rule.MinDurationSeconds,
		rule.CustomMessage,
		rule.TimeStart,
		rule.TimeEnd,
		rule.Expression,
	))
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, tenantID, ruleID int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE rules SET is_deleted = TRUE, enabled = FALSE, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2 AND NOT is_deleted`,
		ruleID, tenantID,
	)
	if err != nil {
		return errors.ErrInternal.WithCause(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	if affected == 0 {
		return errors.ErrNotFound.WithDetail("message", "rule not found")
	}

	return nil
}

func (r *PostgresRepository) InsertHit(ctx context.Context, ruleID int, eventID int64, action string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO rule_hits (rule_id, event_id, action) VALUES ($1, $2, $3) RETURNING id`,
		ruleID, eventID, action,
	).Scan(&id)
	if err != nil {
		return 0, errors.ErrInternal.WithCause(err).WithDetail("message", "failed to insert rule hit")
	}
	return id, nil
}

func (r *PostgresRepository) ListHitsByTenant(ctx context.Context, tenantID, limit int) ([]Hit, error) {
	query := `
		SELECT h.id, h.rule_id, h.event_id, h.triggered_at, h.action
		FROM rule_hits h
		JOIN rules ru ON ru.id = h.rule_id
		WHERE ru.tenant_id = $1
		ORDER BY h.id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.RuleID, &h.EventID, &h.TriggeredAt, &h.Action); err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	return hits, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Rule, error) {
	var rule Rule
	err := row.Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.Name,
		&rule.Enabled,
		&rule.IsDeleted,
		&rule.Camera,
		&rule.Label,
		&rule.FrigateType,
		&rule.MinScore,
		&rule.MinDurationSeconds,
		&rule.CustomMessage,
		&rule.TimeStart,
		&rule.TimeEnd,
		&rule.Expression,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithDetail("message", "rule not found")
	}
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return &rule, nil
}

func (r *PostgresRepository) scanAll(rows *sql.Rows) ([]Rule, error) {
	var result []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(
			&rule.ID,
			&rule.TenantID,
			&rule.Name,
			&rule.Enabled,
			&rule.IsDeleted,
			&rule.Camera,
			&rule.Label,
			&rule.FrigateType,
			&rule.MinScore,
			&rule.MinDurationSeconds,
			&rule.CustomMessage,
			&rule.TimeStart,
			&rule.TimeEnd,
			&rule.Expression,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, errors.ErrInternal.WithCause(err)
		}
		result = append(result, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	return result, nil
}
