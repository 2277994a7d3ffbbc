package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-publisher/internal/dto"
	"github.com/noah-isme/lms-publisher/internal/models"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
)

type contentStore interface {
	GetByID(ctx context.Context, kind models.ContentKind, id string) (*models.PublishableItem, error)
	ListScheduled(ctx context.Context, kind models.ContentKind, courseID string, limit, offset int) ([]models.PublishableItem, error)
	CountScheduled(ctx context.Context, kind models.ContentKind, courseID string) (int, error)
	UpdatePublication(ctx context.Context, kind models.ContentKind, id string, published bool, scheduledAt *time.Time, notify bool, updatedAt time.Time) error
	Delete(ctx context.Context, kind models.ContentKind, id string) ([]string, error)
}

type fileRemover interface {
	Delete(name string) error
}

type usageInvalidator interface {
	InvalidateUsage(ctx context.Context)
}

// ContentService covers the authoring side of publication: scheduling,
// manual publish, manual notification, and deletion.
type ContentService struct {
	store     contentStore
	notifier  publicationNotifier
	files     fileRemover
	usage     usageInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time
}

// NewContentService constructs the service.
func NewContentService(store contentStore, notifier publicationNotifier, files fileRemover, usage usageInvalidator, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContentService{
		store:     store,
		notifier:  notifier,
		files:     files,
		usage:     usage,
		validator: validate,
		logger:    logger,
		clock:     time.Now,
	}
}

// Get returns a single item.
func (s *ContentService) Get(ctx context.Context, kind models.ContentKind, id string) (*models.PublishableItem, error) {
	item, err := s.store.GetByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return item, nil
}

// ListScheduled pages over items waiting for their publication time.
func (s *ContentService) ListScheduled(ctx context.Context, kind models.ContentKind, query dto.ListScheduledQuery) ([]models.PublishableItem, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 20
	}

	items, err := s.store.ListScheduled(ctx, kind, query.CourseID, size, (page-1)*size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduled content")
	}
	total, err := s.store.CountScheduled(ctx, kind, query.CourseID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count scheduled content")
	}
	if items == nil {
		items = []models.PublishableItem{}
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdatePublication publishes, schedules, or unpublishes an item. Publishing
// now and scheduling are mutually exclusive, and a schedule must be in the
// future. A manual publish of an item that asks for email notifies right away.
func (s *ContentService) UpdatePublication(ctx context.Context, kind models.ContentKind, id string, req dto.UpdatePublicationRequest, actor *models.JWTClaims) (*dto.PublicationResponse, error) {
	now := s.clock().UTC()
	if req.IsPublished && req.ScheduledPublishAt != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot publish immediately and schedule a publication date")
	}
	if req.ScheduledPublishAt != nil && !req.ScheduledPublishAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled publication date must be in the future")
	}

	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeAuthor(item, actor); err != nil {
		return nil, err
	}

	var scheduledAt *time.Time
	if req.ScheduledPublishAt != nil {
		at := req.ScheduledPublishAt.UTC()
		scheduledAt = &at
	}
	if err := s.store.UpdatePublication(ctx, kind, id, req.IsPublished, scheduledAt, req.SendNotificationEmail, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update publication")
	}

	wasPublished := item.IsPublished
	item.IsPublished = req.IsPublished
	item.ScheduledPublishAt = scheduledAt
	item.SendNotificationEmail = req.SendNotificationEmail
	item.UpdatedAt = now

	resp := &dto.PublicationResponse{Item: *item, State: item.State()}
	s.logger.Info("publication updated",
		zap.String("kind", kind.Label()),
		zap.String("item_id", id),
		zap.String("state", string(resp.State)),
		zap.String("actor", actor.UserID))

	if req.IsPublished && !wasPublished && req.SendNotificationEmail && s.notifier != nil {
		report := s.notifier.NotifyPublication(ctx, *item)
		resp.Notifications = &report
	}
	return resp, nil
}

// Notify re-sends the publication email for a published item to the whole
// current audience. There is no per-recipient dedup.
func (s *ContentService) Notify(ctx context.Context, kind models.ContentKind, id string, actor *models.JWTClaims) (*models.DeliveryReport, error) {
	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeAuthor(item, actor); err != nil {
		return nil, err
	}
	if !item.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "content is not published")
	}
	if s.notifier == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "notifications are not configured")
	}
	report := s.notifier.NotifyPublication(ctx, *item)
	return &report, nil
}

// Delete removes an item and any stored files that belonged to it.
func (s *ContentService) Delete(ctx context.Context, kind models.ContentKind, id string, actor *models.JWTClaims) error {
	item, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := authorizeAuthor(item, actor); err != nil {
		return err
	}

	paths, err := s.store.Delete(ctx, kind, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete content")
	}

	if s.files != nil {
		for _, path := range paths {
			if err := s.files.Delete(path); err != nil {
				s.logger.Warn("stored file not removed", zap.String("path", path), zap.Error(err))
			}
		}
	}
	if s.usage != nil && len(paths) > 0 {
		s.usage.InvalidateUsage(ctx)
	}
	s.logger.Info("content deleted", zap.String("kind", kind.Label()), zap.String("item_id", id), zap.Int("files", len(paths)))
	return nil
}

func authorizeAuthor(item *models.PublishableItem, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleTeacher && item.OwnedBy(actor.UserID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the course teacher can manage this content")
}
