package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-publisher/internal/models"
	"github.com/noah-isme/lms-publisher/pkg/jobs"
	"github.com/noah-isme/lms-publisher/pkg/storage"
)

// UsageCacheKey is where the computed usage snapshot is cached.
const UsageCacheKey = "storage:usage:stats"

// JobTypeThresholdCheck is the queue job type for deferred threshold checks.
const JobTypeThresholdCheck = "storage.threshold_check"

type storageConfigStore interface {
	Get(ctx context.Context) (*models.StorageConfig, error)
	ClaimAlertWindow(ctx context.Context, id string, prev *time.Time, now time.Time) (bool, error)
	ReleaseAlertWindow(ctx context.Context, id string, claimed time.Time, prev *time.Time) error
}

type adminEmailLookup interface {
	FirstActiveAdminEmail(ctx context.Context) (string, error)
}

type objectSizer interface {
	Size(ctx context.Context) (int64, error)
}

type storageAlertSender interface {
	NotifyStorageAlert(ctx context.Context, to string, usage models.UsageSnapshot, threshold int) error
}

type usageCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// StorageMonitorConfig tunes usage computation and alerting.
type StorageMonitorConfig struct {
	UsageTTL          time.Duration
	SizeTimeout       time.Duration
	AlertCooldown     time.Duration
	DefaultCapacityGB int
}

// StorageService computes media storage usage and emails a single alert per
// cooldown window once usage crosses the configured threshold.
type StorageService struct {
	configs storageConfigStore
	users   adminEmailLookup
	sizer   objectSizer
	alerts  storageAlertSender
	cache   usageCache
	queue   jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     StorageMonitorConfig

	mu    sync.Mutex
	clock func() time.Time

	// bumped by InvalidateUsage; a walk that overlaps a bump is not cached
	generation atomic.Uint64
}

// NewStorageService constructs the monitor. cache and queue may be nil.
func NewStorageService(configs storageConfigStore, users adminEmailLookup, sizer objectSizer, alerts storageAlertSender, cache usageCache, metrics *MetricsService, logger *zap.Logger, cfg StorageMonitorConfig) *StorageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UsageTTL <= 0 {
		cfg.UsageTTL = 5 * time.Minute
	}
	if cfg.SizeTimeout <= 0 {
		cfg.SizeTimeout = time.Minute
	}
	if cfg.AlertCooldown <= 0 {
		cfg.AlertCooldown = 24 * time.Hour
	}
	if cfg.DefaultCapacityGB <= 0 {
		cfg.DefaultCapacityGB = models.DefaultTotalStorageGB
	}
	return &StorageService{
		configs: configs,
		users:   users,
		sizer:   sizer,
		alerts:  alerts,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		clock:   time.Now,
	}
}

// SetQueue attaches the background queue used by AfterFileStored.
func (s *StorageService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// GetUsage returns the cached snapshot or computes a fresh one.
func (s *StorageService) GetUsage(ctx context.Context) (*models.UsageSnapshot, error) {
	if s.cache != nil {
		var cached models.UsageSnapshot
		if hit, err := s.cache.Get(ctx, UsageCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	return s.computeUsage(ctx)
}

// ForceRefresh drops the cached snapshot and recomputes it.
func (s *StorageService) ForceRefresh(ctx context.Context) (*models.UsageSnapshot, error) {
	s.InvalidateUsage(ctx)
	return s.computeUsage(ctx)
}

// InvalidateUsage removes the cached snapshot. Cache errors are logged only.
func (s *StorageService) InvalidateUsage(ctx context.Context) {
	s.generation.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, UsageCacheKey); err != nil {
		s.logger.Warn("usage cache invalidation failed", zap.Error(err))
	}
}

func (s *StorageService) computeUsage(ctx context.Context) (*models.UsageSnapshot, error) {
	generation := s.generation.Load()
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	total := int64(s.cfg.DefaultCapacityGB) * models.BytesPerGB
	if cfg != nil {
		total = cfg.TotalBytes()
	}

	sizeCtx, cancel := context.WithTimeout(ctx, s.cfg.SizeTimeout)
	defer cancel()
	used, err := s.sizer.Size(sizeCtx)
	note := ""
	if err != nil {
		if !errors.Is(err, storage.ErrRootMissing) {
			return nil, err
		}
		// A missing media root is reported as empty storage.
		used = 0
		note = "storage root not found"
		s.logger.Warn("storage root missing, reporting zero usage", zap.Error(err))
	}

	snapshot := models.NewUsageSnapshot(used, total, cfg != nil, s.clock().UTC())
	snapshot.Note = note
	s.metrics.SetStorageUsage(snapshot.UsedPercent)

	if s.cache != nil && s.generation.Load() == generation {
		_ = s.cache.Set(ctx, UsageCacheKey, snapshot, s.cfg.UsageTTL)
	}
	return &snapshot, nil
}

func (s *StorageService) loadConfig(ctx context.Context) (*models.StorageConfig, error) {
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

// CheckAndAlert evaluates usage against the threshold and sends at most one
// alert per cooldown window, across goroutines and processes.
func (s *StorageService) CheckAndAlert(ctx context.Context, now time.Time) models.AlertDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	decision := s.checkAndAlert(ctx, now)
	decision.CheckedAt = now
	s.metrics.ObserveAlertDecision(decision)
	s.logger.Info("storage threshold checked",
		zap.String("outcome", string(decision.Outcome)),
		zap.Bool("sent", decision.Sent),
		zap.Float64("used_percent", decision.UsedPercent),
		zap.Int("threshold", decision.Threshold))
	return decision
}

func (s *StorageService) checkAndAlert(ctx context.Context, now time.Time) models.AlertDecision {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		s.logger.Error("load storage config failed", zap.Error(err))
		return models.AlertDecision{Outcome: models.AlertOutcomeStoreFailed}
	}
	if cfg == nil {
		return models.AlertDecision{Outcome: models.AlertOutcomeNoConfig}
	}
	decision := models.AlertDecision{Threshold: cfg.AlertThresholdPercent}
	if !cfg.AlertEnabled {
		decision.Outcome = models.AlertOutcomeDisabled
		return decision
	}

	usage, err := s.GetUsage(ctx)
	if err != nil {
		s.logger.Error("compute storage usage failed", zap.Error(err))
		decision.Outcome = models.AlertOutcomeUsageUnavailable
		return decision
	}
	decision.UsedPercent = usage.UsedPercent
	if usage.UsedPercent < float64(cfg.AlertThresholdPercent) {
		decision.Outcome = models.AlertOutcomeBelowThreshold
		return decision
	}
	if cfg.InCooldown(now, s.cfg.AlertCooldown) {
		decision.Outcome = models.AlertOutcomeCooldown
		return decision
	}

	to := ""
	if cfg.AlertEmail != nil {
		to = strings.TrimSpace(*cfg.AlertEmail)
	}
	if to == "" && s.users != nil {
		to, err = s.users.FirstActiveAdminEmail(ctx)
		if err != nil {
			s.logger.Error("lookup admin email failed", zap.Error(err))
		}
	}
	if to == "" {
		decision.Outcome = models.AlertOutcomeNoRecipient
		return decision
	}
	decision.Recipient = to

	won, err := s.configs.ClaimAlertWindow(ctx, cfg.ID, cfg.LastAlertSentAt, now)
	if err != nil {
		s.logger.Error("claim alert window failed", zap.Error(err))
		decision.Outcome = models.AlertOutcomeStoreFailed
		return decision
	}
	if !won {
		decision.Outcome = models.AlertOutcomeCooldown
		return decision
	}

	if err := s.alerts.NotifyStorageAlert(ctx, to, *usage, cfg.AlertThresholdPercent); err != nil {
		s.logger.Error("storage alert send failed", zap.String("to", to), zap.Error(err))
		if relErr := s.configs.ReleaseAlertWindow(ctx, cfg.ID, now, cfg.LastAlertSentAt); relErr != nil {
			s.logger.Error("release alert window failed", zap.Error(relErr))
		}
		decision.Outcome = models.AlertOutcomeSendFailed
		return decision
	}

	s.InvalidateUsage(ctx)
	decision.Sent = true
	decision.Outcome = models.AlertOutcomeSent
	return decision
}

// AfterFileStored runs after any media write or delete: the cached usage is
// dropped immediately and a threshold check is queued.
func (s *StorageService) AfterFileStored(ctx context.Context) {
	s.InvalidateUsage(ctx)
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobTypeThresholdCheck, Key: JobTypeThresholdCheck})
		if err == nil {
			return
		}
		s.logger.Warn("threshold check not queued, running inline", zap.Error(err))
	}
	s.CheckAndAlert(ctx, s.clock().UTC())
}

// HandleJob is the jobs.Handler for queued threshold checks.
func (s *StorageService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeThresholdCheck {
		return nil
	}
	decision := s.CheckAndAlert(ctx, s.clock().UTC())
	if decision.Outcome == models.AlertOutcomeStoreFailed {
		return errors.New("storage threshold check could not persist alert state")
	}
	return nil
}
