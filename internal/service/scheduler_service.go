package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/lms-publisher/internal/models"
)

type publishableRepository interface {
	ListDueForPublish(ctx context.Context, kind models.ContentKind, now time.Time) ([]models.PublishableItem, error)
	MarkPublished(ctx context.Context, kind models.ContentKind, id string) (bool, error)
}

type publicationNotifier interface {
	NotifyPublication(ctx context.Context, item models.PublishableItem) models.DeliveryReport
}

// SchedulerService publishes scheduled content once its time has come.
type SchedulerService struct {
	content     publishableRepository
	notifier    publicationNotifier
	metrics     *MetricsService
	logger      *zap.Logger
	concurrency int
	clock       func() time.Time
}

// NewSchedulerService constructs the scheduler. concurrency bounds how many
// published items are notified at once.
func NewSchedulerService(content publishableRepository, notifier publicationNotifier, metrics *MetricsService, logger *zap.Logger, concurrency int) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SchedulerService{
		content:     content,
		notifier:    notifier,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
		clock:       time.Now,
	}
}

// RunSweep publishes every item due at now and notifies course audiences for
// the ones that ask for it. A row is notified only by the sweep whose update
// flipped it, so concurrent or repeated sweeps never double-send.
func (s *SchedulerService) RunSweep(ctx context.Context, now time.Time) models.SweepReport {
	report := models.NewSweepReport(now)
	report.StartedAt = s.clock().UTC()

	var mu sync.Mutex
	// Rows already flipped still get their notification after cancellation;
	// each send is bounded by the transport timeout.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(s.concurrency)

	for _, kind := range models.ContentKinds {
		if ctx.Err() != nil {
			break
		}
		items, err := s.content.ListDueForPublish(ctx, kind, now)
		if err != nil {
			s.logger.Error("list due items failed", zap.String("kind", kind.Label()), zap.Error(err))
			mu.Lock()
			report.Errors = append(report.Errors, models.ItemError{Kind: kind, Stage: models.SweepStageList, Message: err.Error()})
			mu.Unlock()
			continue
		}

		for _, item := range items {
			if ctx.Err() != nil {
				mu.Lock()
				report.Errors = append(report.Errors, models.ItemError{Kind: kind, ItemID: item.ID, Stage: models.SweepStageCancel, Message: ctx.Err().Error()})
				mu.Unlock()
				break
			}
			if item.IsPublished {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				continue
			}

			won, err := s.content.MarkPublished(ctx, kind, item.ID)
			if err != nil {
				s.logger.Error("publish item failed", zap.String("kind", kind.Label()), zap.String("item_id", item.ID), zap.Error(err))
				mu.Lock()
				report.Errors = append(report.Errors, models.ItemError{Kind: kind, ItemID: item.ID, Stage: models.SweepStagePersist, Message: err.Error()})
				mu.Unlock()
				continue
			}
			if !won {
				s.logger.Debug("item already published elsewhere", zap.String("kind", kind.Label()), zap.String("item_id", item.ID))
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				continue
			}

			item.IsPublished = true
			mu.Lock()
			report.Published[kind]++
			mu.Unlock()
			s.logger.Info("item published", zap.String("kind", kind.Label()), zap.String("item_id", item.ID), zap.String("title", item.Title))

			if !item.SendNotificationEmail || s.notifier == nil {
				continue
			}
			published := item
			g.Go(func() error {
				delivery := s.notifier.NotifyPublication(gctx, published)
				mu.Lock()
				defer mu.Unlock()
				report.NotificationsSent += delivery.SentCount
				report.NotificationsFailed += delivery.Failed
				if delivery.Error != "" {
					report.Errors = append(report.Errors, models.ItemError{Kind: published.Kind, ItemID: published.ID, Stage: models.SweepStageNotify, Message: delivery.Error})
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	report.FinishedAt = s.clock().UTC()
	s.metrics.ObserveSweep(report)
	s.logger.Info("sweep finished",
		zap.Time("now", now),
		zap.Int("published", report.TotalPublished()),
		zap.Int("skipped", report.Skipped),
		zap.Int("notifications_sent", report.NotificationsSent),
		zap.Int("notifications_failed", report.NotificationsFailed),
		zap.Int("errors", len(report.Errors)))
	return report
}
