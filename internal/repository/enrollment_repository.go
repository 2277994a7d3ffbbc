package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-publisher/internal/models"
)

// EnrollmentRepository handles enrollment lookups for the notification pipeline.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListApprovedRecipients returns active students with an approved enrollment
// in the course. Email may be empty; callers decide whether to skip.
func (r *EnrollmentRepository) ListApprovedRecipients(ctx context.Context, courseID string) ([]models.Recipient, error) {
	const query = `SELECT u.id AS student_id, COALESCE(u.email, '') AS email, u.full_name, u.username FROM enrollments e JOIN users u ON u.id = e.student_id WHERE e.course_id = $1 AND e.status = $2 AND u.active = TRUE ORDER BY u.username ASC`
	var recipients []models.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query, courseID, models.EnrollmentStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved recipients: %w", err)
	}
	return recipients, nil
}

// IsApproved reports whether the student holds an approved enrollment in the course.
func (r *EnrollmentRepository) IsApproved(ctx context.Context, courseID, studentID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 AND status = $3)`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, courseID, studentID, models.EnrollmentStatusApproved); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return ok, nil
}
