package models

import (
	"strings"
	"time"
)

// EnrollmentStatus represents the lifecycle of a course enrollment request.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending  EnrollmentStatus = "PENDING"
	EnrollmentStatusApproved EnrollmentStatus = "APPROVED"
	EnrollmentStatusRejected EnrollmentStatus = "REJECTED"
)

// Enrollment links a student to a course. (StudentID, CourseID) is unique.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// Recipient is an approved enrollee resolved for notification fan-out.
type Recipient struct {
	StudentID string `db:"student_id" json:"student_id"`
	Email     string `db:"email" json:"email"`
	FullName  string `db:"full_name" json:"full_name"`
	Username  string `db:"username" json:"username"`
}

// DisplayName prefers the full name and falls back to the username.
func (r Recipient) DisplayName() string {
	if name := strings.TrimSpace(r.FullName); name != "" {
		return name
	}
	return r.Username
}

// HasEmail reports whether the recipient can be mailed.
func (r Recipient) HasEmail() bool {
	return strings.TrimSpace(r.Email) != ""
}
