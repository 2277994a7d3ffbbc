package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-publisher/internal/models"
)

// SubmissionRepository persists assignment submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// NextVersion returns the version number for the student's next submission.
func (r *SubmissionRepository) NextVersion(ctx context.Context, assignmentID, studentID string) (int, error) {
	const query = `SELECT COALESCE(MAX(version), 0) + 1 FROM assignment_submissions WHERE assignment_id = $1 AND student_id = $2`
	var version int
	if err := r.db.GetContext(ctx, &version, query, assignmentID, studentID); err != nil {
		return 0, fmt.Errorf("next submission version: %w", err)
	}
	return version, nil
}

// Create inserts a submission row.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.AssignmentSubmission) error {
	const query = `INSERT INTO assignment_submissions (id, assignment_id, student_id, version, file_path, original_filename, size_bytes, submitted_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, sub.ID, sub.AssignmentID, sub.StudentID, sub.Version, sub.FilePath, sub.OriginalFilename, sub.SizeBytes, sub.SubmittedAt); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}
