package threat

import (
	"strings"
	"testing"

	"threatcluster/pkg/models"
)

func TestExplainIsDeterministic(t *testing.T) {
	st := Stats{Size: 12, AvgRisk: 64.2, ErrorRate: 0.4, UniqueRegions: 2, Burst: true}
	a := Explain(st, AttackSuspicious, models.ThreatHigh)
	b := Explain(st, AttackSuspicious, models.ThreatHigh)
	if a != b {
		t.Fatalf("explanations differ for identical input:\n%s\n%s", a, b)
	}
}

func TestExplainMentionsSizeRiskAndClosing(t *testing.T) {
	st := Stats{Size: 8, AvgRisk: 71.5, RootUserRate: 0.25}
	got := Explain(st, AttackPrivilegeEscalation, models.ThreatCritical)

	for _, want := range []string{
		"8 events",
		"71.5",
		"25% of events used the root account",
		"Immediate investigation is recommended.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("explanation missing %q:\n%s", want, got)
		}
	}
}

func TestExplainBurstPhrasing(t *testing.T) {
	st := Stats{Size: 20, AvgRisk: 55, Burst: true, EventsPerHour: 20}
	got := Explain(st, AttackSuspicious, models.ThreatMedium)
	if !strings.Contains(got, "All 20 events occurred at effectively the same instant.") {
		t.Fatalf("burst clusters should be described as instantaneous:\n%s", got)
	}
	if strings.Contains(got, "events per hour") {
		t.Fatalf("burst clusters should not quote an hourly rate:\n%s", got)
	}
}

func TestRiskFactorsSingleSourceIP(t *testing.T) {
	st := Stats{Size: 20, UniqueIPs: 1, ErrorRate: 0.5, Burst: true, AvgRisk: 55}
	factors := RiskFactors(st)

	var found bool
	for _, f := range factors {
		if f == "Single source IP across all 20 events" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected single-source-IP factor, got %v", factors)
	}
}

func TestRiskFactorsPreserveRuleOrder(t *testing.T) {
	st := Stats{
		Size:          15,
		AvgRisk:       80,
		ErrorRate:     0.5,
		RootUserRate:  0.2,
		UniqueRegions: 5,
		UniqueIPs:     9,
	}
	factors := RiskFactors(st)
	if len(factors) < 4 {
		t.Fatalf("expected at least 4 factors, got %v", factors)
	}
	if !strings.HasPrefix(factors[0], "High error rate") {
		t.Fatalf("error rate should come first, got %q", factors[0])
	}
	if !strings.HasPrefix(factors[1], "Root account usage") {
		t.Fatalf("root usage should come second, got %q", factors[1])
	}
	if !strings.HasPrefix(factors[2], "Activity across 5 geographic regions") {
		t.Fatalf("regions should come third, got %q", factors[2])
	}
}

func TestRiskFactorsEmptyForQuietCluster(t *testing.T) {
	st := Stats{Size: 3, AvgRisk: 10, UniqueIPs: 2, ReadRate: 0.3, EventsPerHour: 1}
	if factors := RiskFactors(st); len(factors) != 0 {
		t.Fatalf("expected no factors for a quiet cluster, got %v", factors)
	}
}

func TestRiskFactorsDetectionTags(t *testing.T) {
	st := Stats{Size: 5, TaggedEvents: 2}
	factors := RiskFactors(st)
	var found bool
	for _, f := range factors {
		if f == "2 events matched detection rules" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected detection-rule factor, got %v", factors)
	}
}
