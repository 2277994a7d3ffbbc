package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-publisher/internal/models"
)

const storageConfigColumns = `id, total_storage_gb, alert_threshold_percent, alert_email, alert_enabled, last_alert_sent_at, created_at, updated_at`

// StorageConfigRepository persists the singleton storage_config row.
type StorageConfigRepository struct {
	db *sqlx.DB
}

// NewStorageConfigRepository constructs the repository.
func NewStorageConfigRepository(db *sqlx.DB) *StorageConfigRepository {
	return &StorageConfigRepository{db: db}
}

// Get returns the config row or sql.ErrNoRows when it has not been created.
func (r *StorageConfigRepository) Get(ctx context.Context) (*models.StorageConfig, error) {
	query := `SELECT ` + storageConfigColumns + ` FROM storage_config ORDER BY created_at ASC LIMIT 1`
	var cfg models.StorageConfig
	if err := r.db.GetContext(ctx, &cfg, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get storage config: %w", err)
	}
	return &cfg, nil
}

// Create inserts the row. A second insert fails on the singleton constraint.
func (r *StorageConfigRepository) Create(ctx context.Context, cfg *models.StorageConfig) error {
	query := `INSERT INTO storage_config (id, total_storage_gb, alert_threshold_percent, alert_email, alert_enabled, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + storageConfigColumns
	if err := r.db.GetContext(ctx, cfg, query, cfg.ID, cfg.TotalStorageGB, cfg.AlertThresholdPercent, cfg.AlertEmail, cfg.AlertEnabled, cfg.CreatedAt, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("create storage config: %w", err)
	}
	return nil
}

// Update writes the editable columns. last_alert_sent_at is never touched here.
func (r *StorageConfigRepository) Update(ctx context.Context, cfg *models.StorageConfig) error {
	query := `UPDATE storage_config SET total_storage_gb = $2, alert_threshold_percent = $3, alert_email = $4, alert_enabled = $5, updated_at = $6 WHERE id = $1 RETURNING ` + storageConfigColumns
	if err := r.db.GetContext(ctx, cfg, query, cfg.ID, cfg.TotalStorageGB, cfg.AlertThresholdPercent, cfg.AlertEmail, cfg.AlertEnabled, cfg.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("update storage config: %w", err)
	}
	return nil
}

// ClaimAlertWindow stamps last_alert_sent_at with now only if it still holds
// prev. It returns false when another checker got there first.
func (r *StorageConfigRepository) ClaimAlertWindow(ctx context.Context, id string, prev *time.Time, now time.Time) (bool, error) {
	const query = `UPDATE storage_config SET last_alert_sent_at = $2 WHERE id = $1 AND last_alert_sent_at IS NOT DISTINCT FROM $3`
	res, err := r.db.ExecContext(ctx, query, id, now, prev)
	if err != nil {
		return false, fmt.Errorf("claim alert window: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim alert window rows: %w", err)
	}
	return affected == 1, nil
}

// ReleaseAlertWindow restores prev after a failed send, provided the claimed
// timestamp is still the stored one.
func (r *StorageConfigRepository) ReleaseAlertWindow(ctx context.Context, id string, claimed time.Time, prev *time.Time) error {
	const query = `UPDATE storage_config SET last_alert_sent_at = $3 WHERE id = $1 AND last_alert_sent_at = $2`
	if _, err := r.db.ExecContext(ctx, query, id, claimed, prev); err != nil {
		return fmt.Errorf("release alert window: %w", err)
	}
	return nil
}
