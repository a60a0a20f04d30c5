package cloudtrail

import (
	"testing"
	"time"

	"threatcluster/pkg/models"
)

func TestParseRawCloudTrailNames(t *testing.T) {
	raw := []byte(`{
		"eventID": "abc-123",
		"eventName": "ConsoleLogin",
		"sourceIPAddress": "198.51.100.4",
		"userIdentitytype": "IAMUser",
		"userIdentityuserName": "alice",
		"awsRegion": "eu-west-1",
		"errorCode": "AccessDenied",
		"eventTime": "2026-05-01T08:30:00Z",
		"riskScore": 72.5
	}`)

	ev, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "abc-123" {
		t.Fatalf("unexpected id %q", ev.ID)
	}
	if ev.EventName != "ConsoleLogin" {
		t.Fatalf("unexpected event name %q", ev.EventName)
	}
	if ev.SourceIP != "198.51.100.4" {
		t.Fatalf("unexpected source ip %q", ev.SourceIP)
	}
	if ev.UserIdentityType != "IAMUser" || ev.UserName != "alice" {
		t.Fatalf("unexpected identity: %q %q", ev.UserIdentityType, ev.UserName)
	}
	if ev.ErrorCode != "AccessDenied" {
		t.Fatalf("unexpected error code %q", ev.ErrorCode)
	}
	if ev.RiskScore != 72.5 {
		t.Fatalf("unexpected risk score %f", ev.RiskScore)
	}
	want := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Fatalf("unexpected timestamp %v", ev.Timestamp)
	}
}

func TestParseSnakeCaseStorageNames(t *testing.T) {
	raw := []byte(`{
		"id": "def-456",
		"event_name": "DeleteBucket",
		"source_ip": "203.0.113.9",
		"user_identity_type": "Root",
		"user_name": "root",
		"aws_region": "us-east-1",
		"error_code": "NoError",
		"timestamp": "2026-05-02 10:00:00",
		"risk_score": 91
	}`)

	ev, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.EventName != "DeleteBucket" || ev.AWSRegion != "us-east-1" {
		t.Fatalf("unexpected fields: %q %q", ev.EventName, ev.AWSRegion)
	}
	if !ev.IsRoot() {
		t.Fatalf("expected root identity")
	}
	if ev.Failed() {
		t.Fatalf("NoError should not count as a failure")
	}
	if ev.RiskScore != 91 {
		t.Fatalf("unexpected risk score %f", ev.RiskScore)
	}
}

func TestParseRepairsMissingFields(t *testing.T) {
	ev, err := Parse([]byte(`{"eventName": "GetObject"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.SourceIP != "0.0.0.0" {
		t.Fatalf("expected sentinel ip, got %q", ev.SourceIP)
	}
	if ev.AWSRegion != "unknown" || ev.UserIdentityType != "unknown" {
		t.Fatalf("expected unknown sentinels, got %q %q", ev.AWSRegion, ev.UserIdentityType)
	}
	if ev.ErrorCode != models.NoError {
		t.Fatalf("expected NoError sentinel, got %q", ev.ErrorCode)
	}
	if !ev.Timestamp.IsZero() {
		t.Fatalf("expected zero timestamp, got %v", ev.Timestamp)
	}
}

func TestParseClampsRiskScore(t *testing.T) {
	ev, err := Parse([]byte(`{"eventName": "X", "riskScore": 180}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.RiskScore != 100 {
		t.Fatalf("expected clamp to 100, got %f", ev.RiskScore)
	}

	ev, err = Parse([]byte(`{"eventName": "X", "riskScore": -4}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.RiskScore != 0 {
		t.Fatalf("expected clamp to 0, got %f", ev.RiskScore)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{not json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := []string{
		"2026-05-03T12:00:00Z",
		"2026-05-03T12:00:00.250Z",
		"2026-05-03 12:00:00",
		"2026-05-03",
	}
	for _, c := range cases {
		if _, ok := parseTimestamp(c); !ok {
			t.Fatalf("expected %q to parse", c)
		}
	}
	if _, ok := parseTimestamp("yesterday"); ok {
		t.Fatalf("expected garbage to fail")
	}
	if _, ok := parseTimestamp("  "); ok {
		t.Fatalf("expected blank to fail")
	}
}

func TestParseNumericRiskScoreAsString(t *testing.T) {
	ev, err := Parse([]byte(`{"eventName": "X", "risk_score": "55.5"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.RiskScore != 55.5 {
		t.Fatalf("expected 55.5, got %f", ev.RiskScore)
	}
}
