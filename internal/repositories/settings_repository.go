package repositories

import (
	"context"
	"errors"

	"gaming_lounge_backend/internal/models"
)

type pgSettingsRepository struct {
	ex SQLExecutor
}

func (r *pgSettingsRepository) GetAdmin(ctx context.Context) (*models.AdminSettings, error) {
	s := &models.AdminSettings{}
	query := `SELECT id, admin_delete_pin_hash, failed_attempts, lock_until, updated_at
	          FROM admin_settings WHERE id = $1 FOR UPDATE`
	err := r.ex.QueryRowContext(ctx, query, models.AdminSettingsID).Scan(
		&s.ID, &s.AdminDeletePinHash, &s.FailedAttempts, &s.LockUntil, &s.UpdatedAt)
	if err != nil {
		mapped := mapPQError(err, "getting admin settings")
		if errors.Is(mapped, ErrNotFound) {
			return &models.AdminSettings{ID: models.AdminSettingsID}, nil
		}
		return nil, mapped
	}
	return s, nil
}

func (r *pgSettingsRepository) SaveAdmin(ctx context.Context, s *models.AdminSettings) error {
	query := `INSERT INTO admin_settings (id, admin_delete_pin_hash, failed_attempts, lock_until, updated_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (id) DO UPDATE SET
	            admin_delete_pin_hash = EXCLUDED.admin_delete_pin_hash,
	            failed_attempts = EXCLUDED.failed_attempts,
	            lock_until = EXCLUDED.lock_until,
	            updated_at = EXCLUDED.updated_at`
	_, err := r.ex.ExecContext(ctx, query, models.AdminSettingsID, s.AdminDeletePinHash, s.FailedAttempts, s.LockUntil, s.UpdatedAt)
	if err != nil {
		return mapPQError(err, "saving admin settings")
	}
	return nil
}
