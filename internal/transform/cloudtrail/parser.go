package cloudtrail

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"threatcluster/pkg/models"
)

// Parse converts one raw audit-log payload into a LogEvent. It accepts both
// the normalized snake_case storage names and raw CloudTrail camelCase
// names, and repairs missing fields with neutral sentinels so one malformed
// record never aborts a batch.
func Parse(data []byte) (*models.LogEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return FromMap(raw), nil
}

// FromMap builds a LogEvent from a decoded record.
func FromMap(raw map[string]interface{}) *models.LogEvent {
	ev := &models.LogEvent{
		ID:               getString(raw, "id", "eventID"),
		EventName:        getString(raw, "event_name", "eventName"),
		SourceIP:         getString(raw, "source_ip", "sourceIPAddress"),
		UserIdentityType: getString(raw, "user_identity_type", "userIdentitytype", "userIdentityType"),
		UserName:         getString(raw, "user_name", "userIdentityuserName", "userName"),
		AWSRegion:        getString(raw, "aws_region", "awsRegion"),
		ErrorCode:        getString(raw, "error_code", "errorCode"),
		RiskScore:        getFloat(raw, "risk_score", "riskScore"),
	}

	if ts := getString(raw, "timestamp", "eventTime", "event_time"); ts != "" {
		if t, ok := parseTimestamp(ts); ok {
			ev.Timestamp = t
		}
	}

	repair(ev)
	return ev
}

// repair fills sentinel values for missing fields.
func repair(ev *models.LogEvent) {
	if ev.SourceIP == "" {
		ev.SourceIP = "0.0.0.0"
	}
	if ev.AWSRegion == "" {
		ev.AWSRegion = "unknown"
	}
	if ev.UserIdentityType == "" {
		ev.UserIdentityType = "unknown"
	}
	if ev.ErrorCode == "" {
		ev.ErrorCode = models.NoError
	}
	if ev.RiskScore < 0 {
		ev.RiskScore = 0
	}
	if ev.RiskScore > 100 {
		ev.RiskScore = 100
	}
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func getString(root map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := root[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			return val
		case fmt.Stringer:
			return val.String()
		case float64:
			if val == float64(int64(val)) {
				return fmt.Sprintf("%d", int64(val))
			}
			return fmt.Sprintf("%f", val)
		}
	}
	return ""
}

func getFloat(root map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		v, ok := root[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		case int64:
			return float64(val)
		case string:
			var parsed float64
			if _, err := fmt.Sscanf(val, "%f", &parsed); err == nil {
				return parsed
			}
		}
	}
	return 0
}
