package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-publisher/internal/dto"
	"github.com/noah-isme/lms-publisher/internal/models"
	appErrors "github.com/noah-isme/lms-publisher/pkg/errors"
)

// DefaultMaxUploadBytes caps a single submission file.
const DefaultMaxUploadBytes int64 = 50 * 1024 * 1024

const submissionDir = "assignments/submissions"

const maxVersionAttempts = 3

type assignmentReader interface {
	GetByID(ctx context.Context, kind models.ContentKind, id string) (*models.PublishableItem, error)
}

type enrollmentChecker interface {
	IsApproved(ctx context.Context, courseID, studentID string) (bool, error)
}

type submissionStore interface {
	NextVersion(ctx context.Context, assignmentID, studentID string) (int, error)
	Create(ctx context.Context, sub *models.AssignmentSubmission) error
}

type fileWriter interface {
	SaveStream(name string, r io.Reader) (int64, error)
	Delete(name string) error
}

type fileStoredHook interface {
	AfterFileStored(ctx context.Context)
}

// SubmissionUpload is a single uploaded file as received from the client.
type SubmissionUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// SubmissionService stores student work for published assignments.
type SubmissionService struct {
	assignments assignmentReader
	enrollments enrollmentChecker
	store       submissionStore
	files       fileWriter
	hook        fileStoredHook
	logger      *zap.Logger
	maxBytes    int64
	clock       func() time.Time
}

// NewSubmissionService constructs the service.
func NewSubmissionService(assignments assignmentReader, enrollments enrollmentChecker, store submissionStore, files fileWriter, hook fileStoredHook, logger *zap.Logger, maxBytes int64) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &SubmissionService{
		assignments: assignments,
		enrollments: enrollments,
		store:       store,
		files:       files,
		hook:        hook,
		logger:      logger,
		maxBytes:    maxBytes,
		clock:       time.Now,
	}
}

// MaxBytes returns the upload limit.
func (s *SubmissionService) MaxBytes() int64 {
	return s.maxBytes
}

// Submit stores a new version of the student's work and triggers the storage
// usage hook.
func (s *SubmissionService) Submit(ctx context.Context, assignmentID, studentID string, upload SubmissionUpload) (*dto.SubmissionResponse, error) {
	if strings.TrimSpace(upload.Filename) == "" || upload.Body == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	assignment, err := s.assignments.GetByID(ctx, models.ContentKindAssignment, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if !assignment.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}

	approved, err := s.enrollments.IsApproved(ctx, assignment.CourseID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !approved {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in this course")
	}

	now := s.clock().UTC()
	original := filepath.Base(upload.Filename)
	path := fmt.Sprintf("%s/%s_%s%s", submissionDir, uuid.NewString(), now.Format("20060102150405"), strings.ToLower(filepath.Ext(original)))

	written, err := s.files.SaveStream(path, io.LimitReader(upload.Body, s.maxBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if written > s.maxBytes {
		s.discard(path)
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	sub := &models.AssignmentSubmission{
		AssignmentID:     assignmentID,
		StudentID:        studentID,
		FilePath:         path,
		OriginalFilename: original,
		SizeBytes:        written,
		SubmittedAt:      now,
	}
	if err := s.record(ctx, sub); err != nil {
		s.discard(path)
		return nil, err
	}

	if s.hook != nil {
		s.hook.AfterFileStored(ctx)
	}
	s.logger.Info("submission stored",
		zap.String("assignment_id", assignmentID),
		zap.String("student_id", studentID),
		zap.Int("version", sub.Version),
		zap.Int64("bytes", written))

	return &dto.SubmissionResponse{
		ID:               sub.ID,
		AssignmentID:     sub.AssignmentID,
		Version:          sub.Version,
		OriginalFilename: sub.OriginalFilename,
		SizeBytes:        sub.SizeBytes,
		SubmittedAt:      sub.SubmittedAt,
	}, nil
}

// record assigns the next version and inserts the row. Two uploads racing for
// the same version collide on the unique index; the loser re-reads and retries.
func (s *SubmissionService) record(ctx context.Context, sub *models.AssignmentSubmission) error {
	for attempt := 1; ; attempt++ {
		version, err := s.store.NextVersion(ctx, sub.AssignmentID, sub.StudentID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve submission version")
		}
		sub.ID = uuid.NewString()
		sub.Version = version
		err = s.store.Create(ctx, sub)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
		}
		if attempt == maxVersionAttempts {
			return appErrors.Clone(appErrors.ErrConflict, "another submission took this version, retry the upload")
		}
		s.logger.Debug("submission version taken, retrying", zap.Int("version", version), zap.Int("attempt", attempt))
	}
}

func (s *SubmissionService) discard(path string) {
	if err := s.files.Delete(path); err != nil {
		s.logger.Warn("orphaned submission file not removed", zap.String("path", path), zap.Error(err))
	}
}
