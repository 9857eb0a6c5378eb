package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmdesk/crm-service/internal/domain"
)

// SettingsRepository reads and replaces the single system settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.SystemSettings, error)
	Put(ctx context.Context, values map[string]any, updatedBy string) (*domain.SystemSettings, error)
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository instantiates repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.SystemSettings, error) {
	var s domain.SystemSettings
	err := r.pool.QueryRow(ctx, `SELECT data, updated_by, updated_at FROM system_settings WHERE id=1`).
		Scan(&s.Values, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if s.Values == nil {
		s.Values = map[string]any{}
	}
	return &s, nil
}

func (r *settingsRepository) Put(ctx context.Context, values map[string]any, updatedBy string) (*domain.SystemSettings, error) {
	const query = `
        INSERT INTO system_settings (id, data, updated_by, updated_at)
        VALUES (1, $1, $2, NOW())
        ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_by=EXCLUDED.updated_by, updated_at=EXCLUDED.updated_at
        RETURNING data, updated_by, updated_at`
	var s domain.SystemSettings
	if err := r.pool.QueryRow(ctx, query, values, updatedBy).Scan(&s.Values, &s.UpdatedBy, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
