package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-publisher/internal/models"
)

var contentColumns = []string{"id", "course_id", "course_title", "course_teacher_id", "tema_id", "title", "description", "material_type", "file_path", "link_url", "due_date", "is_published", "scheduled_publish_at", "send_notification_email", "created_at", "updated_at"}

func newContentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestContentRepositoryListDueForPublish(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	due := now.Add(-time.Minute)
	rows := sqlmock.NewRows(contentColumns).
		AddRow("mat-1", "course-1", "Biología", "teacher-1", nil, "Guía 1", "", "FILE", "materials/guia.pdf", nil, nil, false, due, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM materials t JOIN courses c ON c.id = t.course_id WHERE t.is_published = FALSE AND t.scheduled_publish_at IS NOT NULL AND t.scheduled_publish_at <= $1")).
		WithArgs(now).
		WillReturnRows(rows)

	items, err := repo.ListDueForPublish(context.Background(), models.ContentKindMaterial, now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ContentKindMaterial, items[0].Kind)
	assert.Equal(t, "Biología", items[0].CourseTitle)
	require.NotNil(t, items[0].FilePath)
	assert.Equal(t, "materials/guia.pdf", *items[0].FilePath)
	assert.True(t, items[0].SendNotificationEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListDueForPublishUnknownKind(t *testing.T) {
	db, _, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	_, err := repo.ListDueForPublish(context.Background(), models.ContentKind("QUIZ"), time.Now())
	assert.Error(t, err)
}

func TestContentRepositoryMarkPublished(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	query := regexp.QuoteMeta("UPDATE assignments SET is_published = TRUE WHERE id = $1 AND is_published = FALSE")
	mock.ExpectExec(query).WithArgs("asg-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("asg-1").WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.MarkPublished(context.Background(), models.ContentKindAssignment, "asg-1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.MarkPublished(context.Background(), models.ContentKindAssignment, "asg-1")
	require.NoError(t, err)
	assert.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryMarkPublishedError(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE materials SET is_published = TRUE")).
		WithArgs("mat-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.MarkPublished(context.Background(), models.ContentKindMaterial, "mat-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark materials published")
}

func TestContentRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments t JOIN courses c ON c.id = t.course_id WHERE t.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), models.ContentKindAssignment, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryListAndCountScheduled(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	now := time.Now().UTC()
	future := now.Add(time.Hour)
	due := now.Add(24 * time.Hour)
	rows := sqlmock.NewRows(contentColumns).
		AddRow("asg-1", "course-1", "Química", nil, nil, "Tarea 1", "", nil, nil, nil, due, false, future, false, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments t JOIN courses c ON c.id = t.course_id WHERE t.is_published = FALSE AND t.scheduled_publish_at IS NOT NULL")).
		WithArgs("course-1", 20, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assignments t")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, err := repo.ListScheduled(context.Background(), models.ContentKindAssignment, "course-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.PublishStateScheduled, items[0].State())
	require.NotNil(t, items[0].DueDate)

	total, err := repo.CountScheduled(context.Background(), models.ContentKindAssignment, "course-1")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryUpdatePublication(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	now := time.Now().UTC()
	at := now.Add(time.Hour)
	query := regexp.QuoteMeta("UPDATE materials SET is_published = $2, scheduled_publish_at = $3, send_notification_email = $4, updated_at = $5 WHERE id = $1")
	mock.ExpectExec(query).WithArgs("mat-1", false, at, true, now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("missing", true, nil, false, now).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdatePublication(context.Background(), models.ContentKindMaterial, "mat-1", false, &at, true, now))
	err := repo.UpdatePublication(context.Background(), models.ContentKindMaterial, "missing", true, nil, false, now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryDeleteMaterialReturnsFile(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM materials WHERE id = $1 RETURNING file_path")).
		WithArgs("mat-1").
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("materials/guia.pdf"))
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM materials WHERE id = $1 RETURNING file_path")).
		WithArgs("mat-2").
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow(nil))

	paths, err := repo.Delete(context.Background(), models.ContentKindMaterial, "mat-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"materials/guia.pdf"}, paths)

	paths, err = repo.Delete(context.Background(), models.ContentKindMaterial, "mat-2")
	require.NoError(t, err)
	assert.Empty(t, paths)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryDeleteAssignmentCollectsSubmissions(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_path FROM assignment_submissions WHERE assignment_id = $1")).
		WithArgs("asg-1").
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("assignments/submissions/a.pdf").AddRow("assignments/submissions/b.pdf"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs("asg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	paths, err := repo.Delete(context.Background(), models.ContentKindAssignment, "asg-1")
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepositoryDeleteAssignmentMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newContentRepoMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_path FROM assignment_submissions")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), models.ContentKindAssignment, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
