package models

import "time"

// AssignmentSubmission is one uploaded version of a student's work.
type AssignmentSubmission struct {
	ID               string    `db:"id" json:"id"`
	AssignmentID     string    `db:"assignment_id" json:"assignment_id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	Version          int       `db:"version" json:"version"`
	FilePath         string    `db:"file_path" json:"file_path"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	SizeBytes        int64     `db:"size_bytes" json:"size_bytes"`
	SubmittedAt      time.Time `db:"submitted_at" json:"submitted_at"`
}
