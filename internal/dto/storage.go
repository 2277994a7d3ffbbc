package dto

// CreateStorageConfigRequest creates the singleton storage configuration.
type CreateStorageConfigRequest struct {
	TotalStorageGB        int     `json:"total_storage_gb" validate:"required,gt=0"`
	AlertThresholdPercent *int    `json:"alert_threshold_percent" validate:"omitempty,min=0,max=100"`
	AlertEmail            *string `json:"alert_email" validate:"omitempty,email"`
	AlertEnabled          *bool   `json:"alert_enabled"`
}

// UpdateStorageConfigRequest patches the editable fields. The last alert
// timestamp is managed by the monitor and cannot be written.
type UpdateStorageConfigRequest struct {
	TotalStorageGB        *int    `json:"total_storage_gb" validate:"omitempty,gt=0"`
	AlertThresholdPercent *int    `json:"alert_threshold_percent" validate:"omitempty,min=0,max=100"`
	AlertEmail            *string `json:"alert_email" validate:"omitempty,email"`
	ClearAlertEmail       bool    `json:"clear_alert_email"`
	AlertEnabled          *bool   `json:"alert_enabled"`
}

// ThresholdCheckResponse reports a manual threshold check.
type ThresholdCheckResponse struct {
	AlertSent   bool    `json:"alert_sent"`
	Outcome     string  `json:"outcome"`
	UsedPercent float64 `json:"used_percent"`
	Threshold   int     `json:"threshold"`
}
