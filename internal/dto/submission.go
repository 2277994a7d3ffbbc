package dto

import "time"

// SubmissionResponse describes a stored submission.
type SubmissionResponse struct {
	ID               string    `json:"id"`
	AssignmentID     string    `json:"assignment_id"`
	Version          int       `json:"version"`
	OriginalFilename string    `json:"original_filename"`
	SizeBytes        int64     `json:"size_bytes"`
	SubmittedAt      time.Time `json:"submitted_at"`
}
