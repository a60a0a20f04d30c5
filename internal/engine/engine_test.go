package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"threatcluster/internal/threat"
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

func makeBatch(n int) []*models.LogEvent {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	regions := []string{"us-east-1", "eu-west-1", "ap-south-1"}
	events := make([]*models.LogEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, makeEvent(
			"DescribeInstances",
			"10.0.0.1",
			"IAMUser",
			"alice",
			regions[i%len(regions)],
			models.NoError,
			base.Add(time.Duration(i)*time.Minute),
			float64(10+i*3),
		))
	}
	return events
}

func TestRunPartitionsEveryEventIntoExactlyOneCluster(t *testing.T) {
	events := makeBatch(30)
	eng := New(Params{K: 4}, threat.Config{})

	result, err := eng.Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalEvents != 30 {
		t.Fatalf("expected total 30, got %d", result.TotalEvents)
	}
	if len(result.Clusters) != 4 {
		t.Fatalf("expected 4 clusters, got %d", len(result.Clusters))
	}

	sum := 0
	for _, c := range result.Clusters {
		if c.Size != len(c.Events) {
			t.Fatalf("cluster %d size %d does not match events %d", c.ID, c.Size, len(c.Events))
		}
		sum += c.Size
	}
	if sum != 30 {
		t.Fatalf("cluster sizes sum to %d, expected 30", sum)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	events := makeBatch(40)
	eng := New(Params{K: 5}, threat.Config{})

	first, err := eng.Run(events)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := eng.Run(events)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	for i := range first.Clusters {
		a, b := first.Clusters[i], second.Clusters[i]
		if a.Size != b.Size {
			t.Fatalf("cluster %d size differs: %d vs %d", i, a.Size, b.Size)
		}
		if a.ThreatLevel != b.ThreatLevel {
			t.Fatalf("cluster %d threat level differs: %s vs %s", i, a.ThreatLevel, b.ThreatLevel)
		}
		if a.AttackType != b.AttackType {
			t.Fatalf("cluster %d attack type differs: %s vs %s", i, a.AttackType, b.AttackType)
		}
		if a.Explanation != b.Explanation {
			t.Fatalf("cluster %d explanation differs", i)
		}
		if !reflect.DeepEqual(a.RiskFactors, b.RiskFactors) {
			t.Fatalf("cluster %d risk factors differ: %v vs %v", i, a.RiskFactors, b.RiskFactors)
		}
	}
}

func TestRunRejectsEmptyInput(t *testing.T) {
	eng := New(Params{K: 3}, threat.Config{})
	_, err := eng.Run(nil)

	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Events != 0 {
		t.Fatalf("expected 0 events in error, got %d", insufficient.Events)
	}
}

func TestRunRejectsKGreaterThanEventCount(t *testing.T) {
	events := makeBatch(3)
	eng := New(Params{K: 5}, threat.Config{})

	_, err := eng.Run(events)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Events != 3 || insufficient.K != 5 {
		t.Fatalf("unexpected error detail: %+v", insufficient)
	}
}

func TestRunSingleClusterCoversAllEvents(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	events := []*models.LogEvent{
		makeEvent("DescribeInstances", "10.0.0.1", "IAMUser", "alice", "us-east-1", models.NoError, base, 15),
		makeEvent("ListBuckets", "10.0.0.2", "IAMUser", "bob", "eu-west-1", models.NoError, base.Add(time.Minute), 20),
		makeEvent("GetObject", "10.0.0.3", "IAMUser", "carol", "us-east-1", models.NoError, base.Add(2*time.Minute), 18),
	}

	eng := New(Params{K: 1}, threat.Config{})
	result, err := eng.Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(result.Clusters))
	}

	c := result.Clusters[0]
	if c.Size != 3 {
		t.Fatalf("expected cluster of 3, got %d", c.Size)
	}
	want := []string{"eu-west-1", "us-east-1"}
	if !reflect.DeepEqual(c.GeographicSpread, want) {
		t.Fatalf("unexpected geographic spread: %v", c.GeographicSpread)
	}
	if c.AttackType != threat.AttackNormal {
		t.Fatalf("expected Normal Activity for benign events, got %s", c.AttackType)
	}
}

func TestRunHandlesIdenticalTimestampsWithoutDivisionError(t *testing.T) {
	ts := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	events := make([]*models.LogEvent, 0, 12)
	for i := 0; i < 12; i++ {
		events = append(events, makeEvent("GetObject", "10.0.0.1", "IAMUser", "alice", "us-east-1", models.NoError, ts, 30))
	}

	eng := New(Params{K: 2}, threat.Config{})
	result, err := eng.Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0
	for _, c := range result.Clusters {
		total += c.Size
	}
	if total != 12 {
		t.Fatalf("expected all 12 events assigned, got %d", total)
	}
}

func TestPresetLookup(t *testing.T) {
	p, ok := Preset("deep-investigation")
	if !ok {
		t.Fatalf("expected deep-investigation preset to exist")
	}
	if p.K != 8 {
		t.Fatalf("expected k=8, got %d", p.K)
	}
	if _, ok := Preset("nonsense"); ok {
		t.Fatalf("did not expect unknown preset to resolve")
	}
}

func TestSummarizeCountsThreatsAndOrigins(t *testing.T) {
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	events := make([]*models.LogEvent, 0, 20)
	for i := 0; i < 20; i++ {
		events = append(events, makeEvent("DeleteBucket", "203.0.113.7", "Root", "admin", "us-east-1", models.NoError, base, 90))
	}

	eng := New(Params{K: 1, MinClusterSize: 5}, threat.Config{})
	result, err := eng.Run(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Threats.TotalThreats != 1 {
		t.Fatalf("expected 1 threat cluster, got %d", result.Threats.TotalThreats)
	}
	if result.Threats.HighRiskClusters != 1 {
		t.Fatalf("expected 1 high-risk cluster, got %d", result.Threats.HighRiskClusters)
	}
	if result.Threats.AttackCampaigns != 1 {
		t.Fatalf("expected 1 attack campaign, got %d", result.Threats.AttackCampaigns)
	}
	if !reflect.DeepEqual(result.Threats.GeographicOrigins, []string{"us-east-1"}) {
		t.Fatalf("unexpected origins: %v", result.Threats.GeographicOrigins)
	}
	if result.Threats.EventRiskBands[models.ThreatCritical] != 20 {
		t.Fatalf("expected 20 critical-band events, got %d", result.Threats.EventRiskBands[models.ThreatCritical])
	}
}
