package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-publisher/internal/dto"
	"github.com/noah-isme/lms-publisher/internal/models"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
	"github.com/noah-isme/lms-publisher/pkg/export"
)

const pqUniqueViolation = "23505"

type storageConfigRepository interface {
	Get(ctx context.Context) (*models.StorageConfig, error)
	Create(ctx context.Context, cfg *models.StorageConfig) error
	Update(ctx context.Context, cfg *models.StorageConfig) error
}

type storageMonitor interface {
	ForceRefresh(ctx context.Context) (*models.UsageSnapshot, error)
	CheckAndAlert(ctx context.Context, now time.Time) models.AlertDecision
	InvalidateUsage(ctx context.Context)
}

// StorageConfigService administers the singleton storage configuration.
type StorageConfigService struct {
	repo      storageConfigRepository
	monitor   storageMonitor
	validator *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time
}

// NewStorageConfigService constructs the service.
func NewStorageConfigService(repo storageConfigRepository, monitor storageMonitor, validate *validator.Validate, logger *zap.Logger) *StorageConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StorageConfigService{repo: repo, monitor: monitor, validator: validate, logger: logger, clock: time.Now}
}

// Get returns the configuration.
func (s *StorageConfigService) Get(ctx context.Context) (*models.StorageConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "storage configuration not created")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load storage configuration")
	}
	return cfg, nil
}

// Create inserts the configuration. Only one may ever exist.
func (s *StorageConfigService) Create(ctx context.Context, req dto.CreateStorageConfigRequest) (*models.StorageConfig, error) {
	req.AlertEmail = normaliseEmail(req.AlertEmail)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid storage configuration")
	}

	if _, err := s.repo.Get(ctx); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "storage configuration already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load storage configuration")
	}

	now := s.clock().UTC()
	cfg := &models.StorageConfig{
		ID:                    uuid.NewString(),
		TotalStorageGB:        req.TotalStorageGB,
		AlertThresholdPercent: models.DefaultAlertThresholdPercent,
		AlertEmail:            req.AlertEmail,
		AlertEnabled:          true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if req.AlertThresholdPercent != nil {
		cfg.AlertThresholdPercent = *req.AlertThresholdPercent
	}
	if req.AlertEnabled != nil {
		cfg.AlertEnabled = *req.AlertEnabled
	}

	if err := s.repo.Create(ctx, cfg); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "storage configuration already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create storage configuration")
	}
	// Cached snapshots carry the old capacity.
	s.monitor.InvalidateUsage(ctx)
	s.logger.Info("storage configuration created", zap.Int("total_storage_gb", cfg.TotalStorageGB), zap.Int("threshold", cfg.AlertThresholdPercent))
	return cfg, nil
}

// Update applies a partial change. A blank alert email clears it, the same as
// ClearAlertEmail.
func (s *StorageConfigService) Update(ctx context.Context, req dto.UpdateStorageConfigRequest) (*models.StorageConfig, error) {
	if req.AlertEmail != nil {
		req.AlertEmail = normaliseEmail(req.AlertEmail)
		if req.AlertEmail == nil {
			req.ClearAlertEmail = true
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid storage configuration")
	}
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if req.TotalStorageGB != nil {
		cfg.TotalStorageGB = *req.TotalStorageGB
	}
	if req.AlertThresholdPercent != nil {
		cfg.AlertThresholdPercent = *req.AlertThresholdPercent
	}
	if req.ClearAlertEmail {
		cfg.AlertEmail = nil
	} else if req.AlertEmail != nil {
		cfg.AlertEmail = req.AlertEmail
	}
	if req.AlertEnabled != nil {
		cfg.AlertEnabled = *req.AlertEnabled
	}
	cfg.UpdatedAt = s.clock().UTC()

	if err := s.repo.Update(ctx, cfg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "storage configuration not created")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update storage configuration")
	}
	s.monitor.InvalidateUsage(ctx)
	s.logger.Info("storage configuration updated", zap.Int("total_storage_gb", cfg.TotalStorageGB), zap.Int("threshold", cfg.AlertThresholdPercent), zap.Bool("alert_enabled", cfg.AlertEnabled))
	return cfg, nil
}

// Usage recomputes usage, bypassing the cache.
func (s *StorageConfigService) Usage(ctx context.Context) (*models.UsageSnapshot, error) {
	usage, err := s.monitor.ForceRefresh(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to compute storage usage")
	}
	return usage, nil
}

// CheckThreshold runs the same check as the periodic trigger, cooldown included.
func (s *StorageConfigService) CheckThreshold(ctx context.Context) dto.ThresholdCheckResponse {
	decision := s.monitor.CheckAndAlert(ctx, s.clock().UTC())
	return dto.ThresholdCheckResponse{
		AlertSent:   decision.Sent,
		Outcome:     string(decision.Outcome),
		UsedPercent: decision.UsedPercent,
		Threshold:   decision.Threshold,
	}
}

// ExportUsage renders a usage report in the requested format.
func (s *StorageConfigService) ExportUsage(ctx context.Context, format export.Format) (*export.File, error) {
	usage, err := s.Usage(ctx)
	if err != nil {
		return nil, err
	}
	threshold := "-"
	alerts := "-"
	lastAlert := "-"
	if cfg, err := s.repo.Get(ctx); err == nil {
		threshold = fmt.Sprintf("%d%%", cfg.AlertThresholdPercent)
		alerts = map[bool]string{true: "enabled", false: "disabled"}[cfg.AlertEnabled]
		if cfg.LastAlertSentAt != nil {
			lastAlert = cfg.LastAlertSentAt.UTC().Format(time.RFC3339)
		}
	}

	rows := []map[string]string{
		{"Metric": "Used", "Value": fmt.Sprintf("%.2f GB (%.2f MB)", usage.UsedGB, usage.UsedMB)},
		{"Metric": "Available", "Value": fmt.Sprintf("%.2f GB", usage.AvailableGB)},
		{"Metric": "Capacity", "Value": fmt.Sprintf("%.2f GB", usage.TotalGB)},
		{"Metric": "Used percent", "Value": fmt.Sprintf("%.2f%%", usage.UsedPercent)},
		{"Metric": "Alert threshold", "Value": threshold},
		{"Metric": "Alerts", "Value": alerts},
		{"Metric": "Last alert sent", "Value": lastAlert},
	}
	if usage.Note != "" {
		rows = append(rows, map[string]string{"Metric": "Note", "Value": usage.Note})
	}

	file, err := export.Render(format, "storage-usage", export.Dataset{
		Title:       "Storage usage",
		GeneratedAt: usage.ComputedAt,
		Headers:     []string{"Metric", "Value"},
		Rows:        rows,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render usage export")
	}
	return file, nil
}

func normaliseEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
