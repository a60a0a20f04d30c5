package models

import "time"

// NoError is the sentinel error code for events that completed successfully.
const NoError = "NoError"

// LogEvent is one normalized cloud audit-log action. The risk score is
// produced upstream by the external inference ensemble and is read-only here.
type LogEvent struct {
	ID               string         `json:"id,omitempty"`
	EventName        string         `json:"event_name"`
	SourceIP         string         `json:"source_ip"`
	UserIdentityType string         `json:"user_identity_type"`
	UserName         string         `json:"user_name"`
	AWSRegion        string         `json:"aws_region"`
	ErrorCode        string         `json:"error_code"`
	Timestamp        time.Time      `json:"timestamp"`
	RiskScore        float64        `json:"risk_score"`
	DetectionTags    []DetectionTag `json:"detection_tags,omitempty"`
}

// DetectionTag represents a rule match annotation on a single event.
type DetectionTag struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// IsRoot reports whether the event was performed by the account root user.
func (e *LogEvent) IsRoot() bool {
	return e != nil && e.UserIdentityType == "Root"
}

// Failed reports whether the event carries a real error code.
func (e *LogEvent) Failed() bool {
	return e != nil && e.ErrorCode != "" && e.ErrorCode != NoError
}
