package threat

import (
	"testing"
	"time"

	"threatcluster/pkg/models"
)

func makeEvent(name, ip, identity, user, region, errCode string, ts time.Time, risk float64) *models.LogEvent {
	return &models.LogEvent{
		EventName:        name,
		SourceIP:         ip,
		UserIdentityType: identity,
		UserName:         user,
		AWSRegion:        region,
		ErrorCode:        errCode,
		Timestamp:        ts,
		RiskScore:        risk,
	}
}

func TestComputeStatsRates(t *testing.T) {
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	events := []*models.LogEvent{
		makeEvent("ConsoleLogin", "1.1.1.1", "Root", "root", "us-east-1", "AccessDenied", base, 80),
		makeEvent("ConsoleLogin", "1.1.1.1", "IAMUser", "alice", "us-east-1", models.NoError, base.Add(time.Minute), 40),
		makeEvent("DeleteBucket", "2.2.2.2", "IAMUser", "alice", "eu-west-1", models.NoError, base.Add(2*time.Minute), 60),
		makeEvent("AttachUserPolicy", "2.2.2.2", "IAMUser", "bob", "eu-west-1", models.NoError, base.Add(3*time.Minute), 60),
	}

	st := ComputeStats(events)

	if st.Size != 4 {
		t.Fatalf("expected size 4, got %d", st.Size)
	}
	if st.AvgRisk != 60 {
		t.Fatalf("expected avg risk 60, got %f", st.AvgRisk)
	}
	if st.ErrorRate != 0.25 {
		t.Fatalf("expected error rate 0.25, got %f", st.ErrorRate)
	}
	if st.RootUserRate != 0.25 {
		t.Fatalf("expected root rate 0.25, got %f", st.RootUserRate)
	}
	if st.UniqueIPs != 2 || st.UniqueRegions != 2 || st.UniqueUsers != 3 {
		t.Fatalf("unexpected uniqueness counts: ips=%d regions=%d users=%d", st.UniqueIPs, st.UniqueRegions, st.UniqueUsers)
	}
	if st.DestructiveRate != 0.25 {
		t.Fatalf("expected destructive rate 0.25, got %f", st.DestructiveRate)
	}
	if st.AdminRate != 0.25 {
		t.Fatalf("expected admin rate 0.25, got %f", st.AdminRate)
	}
	if st.PrivilegeEvents != 1 {
		t.Fatalf("expected 1 privilege event, got %d", st.PrivilegeEvents)
	}
	if st.LoginEvents != 2 {
		t.Fatalf("expected 2 login events, got %d", st.LoginEvents)
	}
	if st.MaxIPShare != 0.5 {
		t.Fatalf("expected max IP share 0.5, got %f", st.MaxIPShare)
	}
	if st.TimeSpan != "3 minutes" {
		t.Fatalf("expected span label 3 minutes, got %q", st.TimeSpan)
	}
}

func TestComputeStatsBurstCarriesEventCountAsRate(t *testing.T) {
	ts := time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC)
	events := make([]*models.LogEvent, 0, 20)
	for i := 0; i < 20; i++ {
		events = append(events, makeEvent("ConsoleLogin", "1.1.1.1", "IAMUser", "alice", "us-east-1", "AccessDenied", ts, 50))
	}

	st := ComputeStats(events)
	if !st.Burst {
		t.Fatalf("identical timestamps should mark the cluster as a burst")
	}
	if st.EventsPerHour != 20 {
		t.Fatalf("burst rate should equal event count 20, got %f", st.EventsPerHour)
	}
	if st.TimeSpan != "instant" {
		t.Fatalf("expected instant span, got %q", st.TimeSpan)
	}
}

func TestComputeStatsNoTimestamps(t *testing.T) {
	events := []*models.LogEvent{
		makeEvent("GetObject", "1.1.1.1", "IAMUser", "alice", "us-east-1", models.NoError, time.Time{}, 10),
		makeEvent("GetObject", "1.1.1.1", "IAMUser", "alice", "us-east-1", models.NoError, time.Time{}, 10),
	}

	st := ComputeStats(events)
	if !st.Burst {
		t.Fatalf("missing timestamps should mark a burst")
	}
	if st.TimeSpan != "unknown" {
		t.Fatalf("expected unknown span, got %q", st.TimeSpan)
	}
	if st.EventsPerHour != 2 {
		t.Fatalf("expected events-per-hour 2, got %f", st.EventsPerHour)
	}
}

func TestComputeStatsSortsRegionsAndUsers(t *testing.T) {
	base := time.Date(2026, 4, 3, 9, 0, 0, 0, time.UTC)
	events := []*models.LogEvent{
		makeEvent("GetObject", "1.1.1.1", "IAMUser", "carol", "us-west-2", models.NoError, base, 10),
		makeEvent("GetObject", "1.1.1.1", "IAMUser", "alice", "ap-south-1", models.NoError, base, 10),
	}

	st := ComputeStats(events)
	if len(st.Regions) != 2 || st.Regions[0] != "ap-south-1" || st.Regions[1] != "us-west-2" {
		t.Fatalf("regions not sorted: %v", st.Regions)
	}
	if len(st.Users) != 2 || st.Users[0] != "alice" || st.Users[1] != "carol" {
		t.Fatalf("users not sorted: %v", st.Users)
	}
}

func TestEventCategoryHelpers(t *testing.T) {
	if !isDestructiveEvent("TerminateInstances") {
		t.Fatalf("TerminateInstances should be destructive")
	}
	if isDestructiveEvent("CreateBucket") {
		t.Fatalf("CreateBucket should not be destructive")
	}
	if !isReadEvent("DescribeInstances") || !isReadEvent("ListBuckets") {
		t.Fatalf("Describe/List should be reads")
	}
	if isReadEvent("PutObject") {
		t.Fatalf("PutObject should not be a read")
	}
	if !isPrivilegeEscalationEvent("CreateAccessKey") {
		t.Fatalf("CreateAccessKey should count as privilege escalation")
	}
	if !isLoginEvent("AssumeRole") {
		t.Fatalf("AssumeRole should be a login event")
	}
	if !isResourceEvent("RunInstances") {
		t.Fatalf("RunInstances should be a resource event")
	}
}

func TestComputeStatsEmptyInput(t *testing.T) {
	st := ComputeStats(nil)
	if st.Size != 0 {
		t.Fatalf("expected zero size, got %d", st.Size)
	}
}
