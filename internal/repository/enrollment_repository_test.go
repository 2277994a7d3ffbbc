package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-publisher/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryListApprovedRecipients(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "email", "full_name", "username"}).
		AddRow("stu-1", "ana@example.com", "Ana Pérez", "ana").
		AddRow("stu-2", "", "", "luis")
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments e JOIN users u ON u.id = e.student_id WHERE e.course_id = $1 AND e.status = $2 AND u.active = TRUE")).
		WithArgs("course-1", models.EnrollmentStatusApproved).
		WillReturnRows(rows)

	recipients, err := repo.ListApprovedRecipients(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, recipients, 2)
	assert.True(t, recipients[0].HasEmail())
	assert.False(t, recipients[1].HasEmail())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryIsApproved(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 AND status = $3)")).
		WithArgs("course-1", "stu-1", models.EnrollmentStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsApproved(context.Background(), "course-1", "stu-1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
