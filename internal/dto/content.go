package dto

import (
	"time"

	"github.com/noah-isme/lms-publisher/internal/models"
)

// UpdatePublicationRequest changes how and when an item becomes visible.
type UpdatePublicationRequest struct {
	IsPublished           bool       `json:"is_published"`
	ScheduledPublishAt    *time.Time `json:"scheduled_publish_at"`
	SendNotificationEmail bool       `json:"send_notification_email"`
}

// ListScheduledQuery pages over scheduled items.
type ListScheduledQuery struct {
	CourseID string `form:"course_id" validate:"omitempty,uuid"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// PublicationResponse echoes an item after a publication change.
type PublicationResponse struct {
	Item          models.PublishableItem `json:"item"`
	State         models.PublishState    `json:"state"`
	Notifications *models.DeliveryReport `json:"notifications,omitempty"`
}
