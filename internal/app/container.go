package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-publisher/internal/migrations"
	"github.com/noah-isme/lms-publisher/internal/repository"
	"github.com/noah-isme/lms-publisher/internal/service"
	"github.com/noah-isme/lms-publisher/pkg/cache"
	"github.com/noah-isme/lms-publisher/pkg/config"
	"github.com/noah-isme/lms-publisher/pkg/database"
	"github.com/noah-isme/lms-publisher/pkg/jobs"
	"github.com/noah-isme/lms-publisher/pkg/mail"
	"github.com/noah-isme/lms-publisher/pkg/storage"
)

// Container wires repositories and services for both the API and the CLI.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *sqlx.DB
	Redis    *redis.Client
	Cache    *repository.CacheRepository
	Metrics  *service.MetricsService
	Files    *storage.LocalStorage
	Signer   *storage.SignedURLSigner
	Migrator *database.Migrator
	Queue    *jobs.Queue

	Auth          *service.AuthService
	Notifications *service.NotificationService
	Scheduler     *service.SchedulerService
	Storage       *service.StorageService
	StorageConfig *service.StorageConfigService
	Content       *service.ContentService
	Submissions   *service.SubmissionService
}

// New connects to Postgres (and Redis when enabled) and builds every service.
// Redis is optional: a failed connection is logged and the usage cache is
// skipped.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	migrator := database.NewMigrator(db.DB, migrations.FS, logger.Named("migrate"))
	if cfg.Database.AutoMigrate {
		if err := migrator.Up(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, usage cache disabled", zap.Error(err))
		redisClient = nil
	}

	files, err := storage.NewLocalStorage(cfg.Storage.Root)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init media storage: %w", err)
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    redisClient,
		Metrics:  service.NewMetricsService(),
		Files:    files,
		Signer:   storage.NewSignedURLSigner(cfg.Downloads.SignedURLSecret, cfg.Downloads.SignedURLTTL),
		Migrator: migrator,
	}
	c.build()
	return c, nil
}

func (c *Container) build() {
	cfg := c.Config
	validate := validator.New()

	contentRepo := repository.NewContentRepository(c.DB)
	enrollmentRepo := repository.NewEnrollmentRepository(c.DB)
	userRepo := repository.NewUserRepository(c.DB)
	storageConfigRepo := repository.NewStorageConfigRepository(c.DB)
	submissionRepo := repository.NewSubmissionRepository(c.DB)

	c.Cache = repository.NewCacheRepository(c.Redis, c.Logger)
	usageCache := service.NewCacheService(c.Cache, c.Metrics, cfg.Storage.UsageCacheTTL, c.Logger, c.Redis != nil)

	var renderer interface {
		Render(name string, data interface{}) (mail.Content, error)
	}
	if r, err := mail.NewRenderer(); err != nil {
		c.Logger.Error("mail templates unavailable, using plain-text fallback", zap.Error(err))
	} else {
		renderer = r
	}

	c.Auth = service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	c.Notifications = service.NewNotificationService(
		enrollmentRepo,
		mail.NewTransport(cfg.Mail, c.Logger.Named("mail")),
		renderer,
		c.Signer,
		c.Metrics,
		c.Logger.Named("notifications"),
		service.NotificationConfig{
			PublicBaseURL:   cfg.PublicBaseURL,
			DownloadBaseURL: cfg.APIBaseURL + cfg.APIPrefix,
			Concurrency:     cfg.Publisher.NotifyConcurrency,
			SendTimeout:     cfg.Mail.Timeout,
		},
	)

	c.Scheduler = service.NewSchedulerService(contentRepo, c.Notifications, c.Metrics, c.Logger.Named("publisher"), cfg.Publisher.NotifyConcurrency)

	c.Storage = service.NewStorageService(
		storageConfigRepo,
		userRepo,
		c.Files,
		c.Notifications,
		usageCache,
		c.Metrics,
		c.Logger.Named("storage"),
		service.StorageMonitorConfig{
			UsageTTL:          cfg.Storage.UsageCacheTTL,
			SizeTimeout:       cfg.Storage.SizeTimeout,
			AlertCooldown:     cfg.Storage.AlertCooldown,
			DefaultCapacityGB: cfg.Storage.DefaultCapacityGB,
		},
	)
	c.Queue = jobs.NewQueue("storage-checks", c.Storage.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Storage.CheckWorkers,
		BufferSize: 16,
		MaxRetries: cfg.Storage.CheckRetries,
		RetryDelay: 5 * time.Second,
		Logger:     c.Logger.Named("jobs"),
	})
	c.Storage.SetQueue(c.Queue)

	c.StorageConfig = service.NewStorageConfigService(storageConfigRepo, c.Storage, validate, c.Logger.Named("storage-config"))
	c.Content = service.NewContentService(contentRepo, c.Notifications, c.Files, c.Storage, validate, c.Logger.Named("content"))
	c.Submissions = service.NewSubmissionService(contentRepo, enrollmentRepo, submissionRepo, c.Files, c.Storage, c.Logger.Named("submissions"), cfg.Storage.MaxUploadBytes)
}

// Start launches background workers. Without it, threshold checks triggered
// by uploads run inline.
func (c *Container) Start(ctx context.Context) {
	c.Queue.Start(ctx)
}

// Close stops workers and releases connections.
func (c *Container) Close() {
	if c.Queue != nil {
		c.Queue.Stop()
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("close database", zap.Error(err))
		}
	}
}
