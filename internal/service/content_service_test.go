package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-publisher/internal/dto"
	"github.com/noah-isme/lms-publisher/internal/models"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
)

type stubContentStore struct {
	item         *models.PublishableItem
	getErr       error
	listed       []models.PublishableItem
	total        int
	lastLimit    int
	lastOffset   int
	updateErr    error
	updated      bool
	updatedAt    *time.Time
	deletedPaths []string
	deleteErr    error
	deleted      bool
}

func (s *stubContentStore) GetByID(ctx context.Context, kind models.ContentKind, id string) (*models.PublishableItem, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.item == nil || s.item.ID != id {
		return nil, sql.ErrNoRows
	}
	clone := *s.item
	return &clone, nil
}

func (s *stubContentStore) ListScheduled(ctx context.Context, kind models.ContentKind, courseID string, limit, offset int) ([]models.PublishableItem, error) {
	s.lastLimit, s.lastOffset = limit, offset
	return s.listed, nil
}

func (s *stubContentStore) CountScheduled(ctx context.Context, kind models.ContentKind, courseID string) (int, error) {
	return s.total, nil
}

func (s *stubContentStore) UpdatePublication(ctx context.Context, kind models.ContentKind, id string, published bool, scheduledAt *time.Time, notify bool, updatedAt time.Time) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = true
	s.updatedAt = scheduledAt
	return nil
}

func (s *stubContentStore) Delete(ctx context.Context, kind models.ContentKind, id string) ([]string, error) {
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	s.deleted = true
	return s.deletedPaths, nil
}

type recordingRemover struct {
	removed []string
	fail    map[string]bool
}

func (r *recordingRemover) Delete(name string) error {
	if r.fail[name] {
		return errors.New("permission denied")
	}
	r.removed = append(r.removed, name)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateUsage(ctx context.Context) { c.calls++ }

var contentNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func draftMaterial() *models.PublishableItem {
	teacher := "teacher-1"
	return &models.PublishableItem{
		ID:              "mat-1",
		Kind:            models.ContentKindMaterial,
		CourseID:        "course-1",
		CourseTeacherID: &teacher,
		Title:           "Guía de estudio",
	}
}

func teacherActor(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleTeacher}
}

func newTestContentService(store *stubContentStore, notifier publicationNotifier, files fileRemover, usage usageInvalidator) *ContentService {
	svc := NewContentService(store, notifier, files, usage, nil, nil)
	svc.clock = func() time.Time { return contentNow }
	return svc
}

func TestUpdatePublicationRejectsPublishAndSchedule(t *testing.T) {
	store := &stubContentStore{item: draftMaterial()}
	svc := newTestContentService(store, nil, nil, nil)
	at := contentNow.Add(time.Hour)

	_, err := svc.UpdatePublication(context.Background(), models.ContentKindMaterial, "mat-1", dto.UpdatePublicationRequest{IsPublished: true, ScheduledPublishAt: &at}, teacherActor("teacher-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.False(t, store.updated)
}

func TestUpdatePublicationRejectsPastSchedule(t *testing.T) {
	store := &stubContentStore{item: draftMaterial()}
	svc := newTestContentService(store, nil, nil, nil)
	past := contentNow.Add(-time.Minute)

	_, err := svc.UpdatePublication(context.Background(), models.ContentKindMaterial, "mat-1", dto.UpdatePublicationRequest{ScheduledPublishAt: &past}, teacherActor("teacher-1"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestUpdatePublicationSchedulesItem(t *testing.T) {
	store := &stubContentStore{item: draftMaterial()}
	notifier := &recordingNotifier{}
	svc := newTestContentService(store, notifier, nil, nil)
	at := time.Date(2024, 5, 2, 8, 0, 0, 0, time.FixedZone("CET", 3600))

	resp, err := svc.UpdatePublication(context.Background(), models.ContentKindMaterial, "mat-1", dto.UpdatePublicationRequest{ScheduledPublishAt: &at, SendNotificationEmail: true}, teacherActor("teacher-1"))
	require.NoError(t, err)
	assert.Equal(t, models.PublishStateScheduled, resp.State)
	require.NotNil(t, store.updatedAt)
	assert.Equal(t, time.UTC, store.updatedAt.Location())
	assert.Nil(t, resp.Notifications)
	assert.Empty(t, notifier.calls())
}

func TestUpdatePublicationManualPublishNotifies(t *testing.T) {
	store := &stubContentStore{item: draftMaterial()}
	notifier := &recordingNotifier{sent: 2}
	svc := newTestContentService(store, notifier, nil, nil)

	resp, err := svc.UpdatePublication(context.Background(), models.ContentKindMaterial, "mat-1", dto.UpdatePublicationRequest{IsPublished: true, SendNotificationEmail: true}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.PublishStatePublished, resp.State)
	require.NotNil(t, resp.Notifications)
	assert.Equal(t, 2, resp.Notifications.SentCount)
	assert.Equal(t, []string{"mat-1"}, notifier.calls())
}

func TestUpdatePublicationAlreadyPublishedDoesNotRenotify(t *testing.T) {
	item := draftMaterial()
	item.IsPublished = true
	store := &stubContentStore{item: item}
	notifier := &recordingNotifier{}
	svc := newTestContentService(store, notifier, nil, nil)

	_, err := svc.UpdatePublication(context.Background(), models.ContentKindMaterial, "mat-1", dto.UpdatePublicationRequest{IsPublished: true, SendNotificationEmail: true}, teacherActor("teacher-1"))
	require.NoError(t, err)
	assert.Empty(t, notifier.calls())
}

func TestUpdatePublicationAuthorization(t *testing.T) {
	cases := []struct {
		name  string
		actor *models.JWTClaims
		want  error
	}{
		{name: "other teacher", actor: teacherActor("teacher-2"), want: appErrors.ErrForbidden},
		{name: "student", actor: &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}, want: appErrors.ErrForbidden},
		{name: "anonymous", actor: nil, want: appErrors.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubContentStore{item: draftMaterial()}
			svc := newTestContentService(store, nil, nil, nil)
			_, err := svc.UpdatePublication(context.Background(), models.ContentKindMaterial, "mat-1", dto.UpdatePublicationRequest{IsPublished: true}, tc.actor)
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, store.updated)
		})
	}
}

func TestUpdatePublicationNotFound(t *testing.T) {
	svc := newTestContentService(&stubContentStore{}, nil, nil, nil)
	_, err := svc.UpdatePublication(context.Background(), models.ContentKindAssignment, "missing", dto.UpdatePublicationRequest{}, teacherActor("teacher-1"))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestNotifyRequiresPublishedItem(t *testing.T) {
	store := &stubContentStore{item: draftMaterial()}
	notifier := &recordingNotifier{}
	svc := newTestContentService(store, notifier, nil, nil)

	_, err := svc.Notify(context.Background(), models.ContentKindMaterial, "mat-1", teacherActor("teacher-1"))
	assert.ErrorIs(t, err, appErrors.ErrPreconditionFailed)

	store.item.IsPublished = true
	report, err := svc.Notify(context.Background(), models.ContentKindMaterial, "mat-1", teacherActor("teacher-1"))
	require.NoError(t, err)
	assert.Equal(t, "mat-1", report.ItemID)
	assert.Equal(t, []string{"mat-1"}, notifier.calls())
}

func TestListScheduledDefaultsPaging(t *testing.T) {
	store := &stubContentStore{total: 45}
	svc := newTestContentService(store, nil, nil, nil)

	items, page, err := svc.ListScheduled(context.Background(), models.ContentKindMaterial, dto.ListScheduledQuery{Page: 3})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, 20, store.lastLimit)
	assert.Equal(t, 40, store.lastOffset)
	assert.Equal(t, models.Pagination{Page: 3, PageSize: 20, TotalCount: 45}, *page)

	_, _, err = svc.ListScheduled(context.Background(), models.ContentKindMaterial, dto.ListScheduledQuery{CourseID: "not-a-uuid"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestDeleteRemovesStoredFiles(t *testing.T) {
	store := &stubContentStore{item: draftMaterial(), deletedPaths: []string{"materials/a.pdf", "materials/b.pdf"}}
	remover := &recordingRemover{fail: map[string]bool{"materials/b.pdf": true}}
	usage := &countingInvalidator{}
	svc := newTestContentService(store, nil, remover, usage)

	require.NoError(t, svc.Delete(context.Background(), models.ContentKindMaterial, "mat-1", teacherActor("teacher-1")))
	assert.True(t, store.deleted)
	assert.Equal(t, []string{"materials/a.pdf"}, remover.removed)
	assert.Equal(t, 1, usage.calls)
}

func TestDeleteWithoutFilesSkipsInvalidation(t *testing.T) {
	store := &stubContentStore{item: draftMaterial()}
	usage := &countingInvalidator{}
	svc := newTestContentService(store, nil, &recordingRemover{}, usage)

	require.NoError(t, svc.Delete(context.Background(), models.ContentKindMaterial, "mat-1", teacherActor("teacher-1")))
	assert.Zero(t, usage.calls)
}
