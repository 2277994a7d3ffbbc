package models

import (
	"math"
	"time"
)

// BytesPerGB is the binary gigabyte used for capacity figures.
const BytesPerGB int64 = 1024 * 1024 * 1024

const bytesPerMB = 1024 * 1024

// Defaults applied when the storage config row has not been created yet.
const (
	DefaultTotalStorageGB        = 20
	DefaultAlertThresholdPercent = 80
)

// StorageConfig is the singleton row tuning the quota monitor.
type StorageConfig struct {
	ID                    string     `db:"id" json:"id"`
	TotalStorageGB        int        `db:"total_storage_gb" json:"total_storage_gb"`
	AlertThresholdPercent int        `db:"alert_threshold_percent" json:"alert_threshold_percent"`
	AlertEmail            *string    `db:"alert_email" json:"alert_email,omitempty"`
	AlertEnabled          bool       `db:"alert_enabled" json:"alert_enabled"`
	LastAlertSentAt       *time.Time `db:"last_alert_sent_at" json:"last_alert_sent_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// TotalBytes converts the configured capacity to bytes.
func (c StorageConfig) TotalBytes() int64 {
	return int64(c.TotalStorageGB) * BytesPerGB
}

// InCooldown reports whether an alert was sent less than cooldown before now.
func (c StorageConfig) InCooldown(now time.Time, cooldown time.Duration) bool {
	return c.LastAlertSentAt != nil && now.Sub(*c.LastAlertSentAt) < cooldown
}

// UsageSnapshot is a point-in-time view of media storage consumption.
type UsageSnapshot struct {
	UsedBytes      int64     `json:"used_bytes"`
	TotalBytes     int64     `json:"total_bytes"`
	AvailableBytes int64     `json:"available_bytes"`
	UsedPercent    float64   `json:"used_percent"`
	UsedGB         float64   `json:"used_gb"`
	TotalGB        float64   `json:"total_gb"`
	AvailableGB    float64   `json:"available_gb"`
	UsedMB         float64   `json:"used_mb"`
	ConfigPresent  bool      `json:"config_present"`
	Note           string    `json:"note,omitempty"`
	ComputedAt     time.Time `json:"computed_at"`
}

// NewUsageSnapshot derives the percentage and unit conversions. UsedPercent
// is 0 when total is 0 and is not capped at 100.
func NewUsageSnapshot(used, total int64, configPresent bool, computedAt time.Time) UsageSnapshot {
	available := total - used
	if available < 0 {
		available = 0
	}
	var percent float64
	if total > 0 {
		percent = round2(float64(used) / float64(total) * 100)
	}
	return UsageSnapshot{
		UsedBytes:      used,
		TotalBytes:     total,
		AvailableBytes: available,
		UsedPercent:    percent,
		UsedGB:         round2(float64(used) / float64(BytesPerGB)),
		TotalGB:        round2(float64(total) / float64(BytesPerGB)),
		AvailableGB:    round2(float64(available) / float64(BytesPerGB)),
		UsedMB:         round2(float64(used) / bytesPerMB),
		ConfigPresent:  configPresent,
		ComputedAt:     computedAt,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AlertOutcome explains the result of a threshold evaluation.
type AlertOutcome string

const (
	AlertOutcomeSent             AlertOutcome = "SENT"
	AlertOutcomeNoConfig         AlertOutcome = "NO_CONFIG"
	AlertOutcomeDisabled         AlertOutcome = "DISABLED"
	AlertOutcomeUsageUnavailable AlertOutcome = "USAGE_UNAVAILABLE"
	AlertOutcomeBelowThreshold   AlertOutcome = "BELOW_THRESHOLD"
	AlertOutcomeCooldown         AlertOutcome = "COOLDOWN"
	AlertOutcomeNoRecipient      AlertOutcome = "NO_RECIPIENT"
	AlertOutcomeSendFailed       AlertOutcome = "SEND_FAILED"
	AlertOutcomeStoreFailed      AlertOutcome = "STORE_FAILED"
)

// AlertDecision is the full result of one threshold check.
type AlertDecision struct {
	Sent        bool         `json:"alert_sent"`
	Outcome     AlertOutcome `json:"outcome"`
	UsedPercent float64      `json:"used_percent"`
	Threshold   int          `json:"threshold"`
	Recipient   string       `json:"recipient,omitempty"`
	CheckedAt   time.Time    `json:"checked_at"`
}

// Failed reports a check that could not complete: usage was not measured, the
// alert could not be sent, or its timestamp was not recorded.
func (d AlertDecision) Failed() bool {
	switch d.Outcome {
	case AlertOutcomeUsageUnavailable, AlertOutcomeSendFailed, AlertOutcomeStoreFailed:
		return true
	}
	return false
}
