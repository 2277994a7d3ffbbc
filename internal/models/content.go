package models

import (
	"strings"
	"time"
)

// ContentKind distinguishes the publishable content variants.
type ContentKind string

const (
	ContentKindMaterial   ContentKind = "MATERIAL"
	ContentKindAssignment ContentKind = "ASSIGNMENT"
)

// ContentKinds lists every kind in sweep order.
var ContentKinds = []ContentKind{ContentKindMaterial, ContentKindAssignment}

// ParseContentKind accepts the enum value or the plural route segment
// ("materials", "assignments").
func ParseContentKind(raw string) (ContentKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "material", "materials":
		return ContentKindMaterial, true
	case "assignment", "assignments":
		return ContentKindAssignment, true
	default:
		return "", false
	}
}

// Label is the lowercase singular used in tags and log fields.
func (k ContentKind) Label() string {
	return strings.ToLower(string(k))
}

// PublishState is derived from IsPublished and ScheduledPublishAt.
type PublishState string

const (
	PublishStateDraft     PublishState = "DRAFT"
	PublishStateScheduled PublishState = "SCHEDULED"
	PublishStatePublished PublishState = "PUBLISHED"
)

// MaterialType tells whether a material carries a file or an external link.
type MaterialType string

const (
	MaterialTypeFile MaterialType = "FILE"
	MaterialTypeLink MaterialType = "LINK"
)

// PublishableItem is a material or assignment as seen by the publication pipeline.
type PublishableItem struct {
	ID                    string        `db:"id" json:"id"`
	Kind                  ContentKind   `db:"-" json:"kind"`
	CourseID              string        `db:"course_id" json:"course_id"`
	CourseTitle           string        `db:"course_title" json:"course_title"`
	CourseTeacherID       *string       `db:"course_teacher_id" json:"course_teacher_id,omitempty"`
	TemaID                *string       `db:"tema_id" json:"tema_id,omitempty"`
	Title                 string        `db:"title" json:"title"`
	Description           string        `db:"description" json:"description"`
	MaterialType          *MaterialType `db:"material_type" json:"material_type,omitempty"`
	FilePath              *string       `db:"file_path" json:"file_path,omitempty"`
	LinkURL               *string       `db:"link_url" json:"link_url,omitempty"`
	DueDate               *time.Time    `db:"due_date" json:"due_date,omitempty"`
	IsPublished           bool          `db:"is_published" json:"is_published"`
	ScheduledPublishAt    *time.Time    `db:"scheduled_publish_at" json:"scheduled_publish_at,omitempty"`
	SendNotificationEmail bool          `db:"send_notification_email" json:"send_notification_email"`
	CreatedAt             time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time     `db:"updated_at" json:"updated_at"`
}

// State derives the publication state. IsPublished wins over a stale schedule.
func (i PublishableItem) State() PublishState {
	switch {
	case i.IsPublished:
		return PublishStatePublished
	case i.ScheduledPublishAt != nil:
		return PublishStateScheduled
	default:
		return PublishStateDraft
	}
}

// DueAt reports whether a scheduled item should be published at now.
func (i PublishableItem) DueAt(now time.Time) bool {
	return !i.IsPublished && i.ScheduledPublishAt != nil && !i.ScheduledPublishAt.After(now)
}

// OwnedBy reports whether userID teaches the item's course.
func (i PublishableItem) OwnedBy(userID string) bool {
	return i.CourseTeacherID != nil && *i.CourseTeacherID == userID
}

// Pagination describes one page of a scheduled-content listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
