package models

import "time"

// Stages at which a sweep item can fail.
const (
	SweepStageList    = "list"
	SweepStagePersist = "persist"
	SweepStageNotify  = "notify"
	SweepStageCancel  = "cancelled"
)

// ItemError records a per-item failure without aborting the sweep.
type ItemError struct {
	Kind    ContentKind `json:"kind"`
	ItemID  string      `json:"item_id,omitempty"`
	Stage   string      `json:"stage"`
	Message string      `json:"message"`
}

// SweepReport summarises one publication sweep.
type SweepReport struct {
	Now                 time.Time           `json:"now"`
	Published           map[ContentKind]int `json:"published"`
	Skipped             int                 `json:"skipped"`
	NotificationsSent   int                 `json:"notifications_sent"`
	NotificationsFailed int                 `json:"notifications_failed"`
	Errors              []ItemError         `json:"errors,omitempty"`
	StartedAt           time.Time           `json:"started_at"`
	FinishedAt          time.Time           `json:"finished_at"`
}

// NewSweepReport initialises counters for every kind.
func NewSweepReport(now time.Time) SweepReport {
	published := make(map[ContentKind]int, len(ContentKinds))
	for _, kind := range ContentKinds {
		published[kind] = 0
	}
	return SweepReport{Now: now, Published: published}
}

// TotalPublished sums published items across kinds.
func (r SweepReport) TotalPublished() int {
	total := 0
	for _, n := range r.Published {
		total += n
	}
	return total
}

// HasFailures reports errors that left due items unpublished.
func (r SweepReport) HasFailures() bool {
	for _, e := range r.Errors {
		if e.Stage == SweepStageList || e.Stage == SweepStagePersist {
			return true
		}
	}
	return false
}

// RecipientFailure is a single failed delivery.
type RecipientFailure struct {
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Error     string `json:"error"`
}

// DeliveryReport summarises a fan-out for one item.
type DeliveryReport struct {
	ItemID     string             `json:"item_id"`
	Kind       ContentKind        `json:"kind"`
	Recipients int                `json:"recipients"`
	SentCount  int                `json:"sent_count"`
	Failed     int                `json:"failed"`
	Skipped    int                `json:"skipped"`
	Failures   []RecipientFailure `json:"failures,omitempty"`
	Error      string             `json:"error,omitempty"`
}
