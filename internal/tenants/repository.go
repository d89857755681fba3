package tenants

import (
	"context"
	"database/sql"

	"vidria/pkg/errors"
)

type Repository interface {
	GetByToken(ctx context.Context, token string) (*Tenant, error)
	GetByID(ctx context.Context, id int) (*Tenant, error)
	Update(ctx context.Context, id int, req UpdateTenantRequest) (*Tenant, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const tenantColumns = `id, token, username, COALESCE(whatsapp_number, ''), whatsapp_enabled, timezone, created_at, updated_at`

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE token = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, id int, req UpdateTenantRequest) (*Tenant, error) {
	query := `
		UPDATE tenants
		SET whatsapp_number = COALESCE($2, whatsapp_number),
		    whatsapp_enabled = COALESCE($3, whatsapp_enabled),
		    timezone = COALESCE($4, timezone),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + tenantColumns
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, req.WhatsAppNumber, req.WhatsAppEnabled, req.Timezone))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID,
		&t.Token,
		&t.Username,
		&t.WhatsAppNumber,
		&t.WhatsAppEnabled,
		&t.Timezone,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound.WithDetail("message", "tenant not found")
	}
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return &t, nil
}
