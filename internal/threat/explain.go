package threat

import (
	"fmt"
	"strings"

	"threatcluster/pkg/models"
)

var attackSummaries = map[string]string{
	AttackBruteForce:          "This cluster shows repeated failed operations at a rate consistent with automated credential guessing.",
	AttackCredentialStuffing:  "Failed authentication attempts arrive from many source addresses, matching credential stuffing against harvested credentials.",
	AttackPrivilegeEscalation: "The cluster contains policy and identity changes typically used to expand permissions.",
	AttackDataExfiltration:    "High-risk read-heavy access suggests systematic collection of data.",
	AttackResourceAbuse:       "Compute provisioning calls dominate this cluster, a pattern seen in resource hijacking.",
	AttackDestructive:         "A significant share of events delete or terminate resources.",
	AttackReconnaissance:      "Read operations probing many services, often failing, indicate environment enumeration.",
	AttackAccountTakeover:     "Sign-in activity from multiple addresses with failures points at an account takeover attempt.",
	AttackAPIAbuse:            "A single operation is being invoked at an abnormally high rate.",
	AttackGeographicAnomaly:   "Activity originates from an unusually wide set of regions.",
	AttackTimeAnomaly:         "Event timing is highly irregular compared to normal operational cadence.",
	AttackSuspicious:          "The cluster's combined risk and error signals exceed normal baselines without matching a specific attack pattern.",
	AttackNormal:              "Events in this cluster are consistent with routine operational activity.",
}

var levelClosings = map[string]string{
	models.ThreatCritical: "Immediate investigation is recommended.",
	models.ThreatHigh:     "This cluster warrants prompt review.",
	models.ThreatMedium:   "Review this cluster as part of regular triage.",
	models.ThreatLow:      "No immediate action is required.",
}

// Explain produces the narrative paragraph for a cluster. Deterministic:
// identical stats, attack type and level yield an identical string.
func Explain(st Stats, attackType, level string) string {
	var b strings.Builder
	b.WriteString(attackSummaries[attackType])
	b.WriteString(fmt.Sprintf(" The cluster contains %d events with an average risk score of %.1f.", st.Size, st.AvgRisk))

	if st.ErrorRate > 0 {
		b.WriteString(fmt.Sprintf(" %.0f%% of events failed.", st.ErrorRate*100))
	}
	if st.RootUserRate > 0 {
		b.WriteString(fmt.Sprintf(" %.0f%% of events used the root account.", st.RootUserRate*100))
	}
	if st.UniqueRegions > 1 {
		b.WriteString(fmt.Sprintf(" Activity spans %d regions.", st.UniqueRegions))
	}
	if st.Burst {
		b.WriteString(fmt.Sprintf(" All %d events occurred at effectively the same instant.", st.Size))
	} else if st.EventsPerHour >= 1 {
		b.WriteString(fmt.Sprintf(" The observed rate is %.0f events per hour over %s.", st.EventsPerHour, st.TimeSpan))
	}

	b.WriteString(" ")
	b.WriteString(levelClosings[level])
	return b.String()
}

// riskFactorRule emits one factor string when its threshold is crossed.
type riskFactorRule struct {
	Applies func(Stats) bool
	Render  func(Stats) string
}

// riskFactorRules is evaluated in order; the output list preserves this order.
var riskFactorRules = []riskFactorRule{
	{
		func(st Stats) bool { return st.ErrorRate > 0.3 },
		func(st Stats) string { return fmt.Sprintf("High error rate: %.0f%% of operations failed", st.ErrorRate*100) },
	},
	{
		func(st Stats) bool { return st.RootUserRate > 0.1 },
		func(st Stats) string {
			return fmt.Sprintf("Root account usage in %.0f%% of events", st.RootUserRate*100)
		},
	},
	{
		func(st Stats) bool { return st.UniqueRegions > 3 },
		func(st Stats) string { return fmt.Sprintf("Activity across %d geographic regions", st.UniqueRegions) },
	},
	{
		func(st Stats) bool { return st.UniqueIPs > 5 },
		func(st Stats) string { return fmt.Sprintf("Requests from %d distinct source IPs", st.UniqueIPs) },
	},
	{
		func(st Stats) bool { return st.UniqueIPs == 1 && st.Size >= 10 },
		func(st Stats) string { return fmt.Sprintf("Single source IP across all %d events", st.Size) },
	},
	{
		func(st Stats) bool { return st.EventsPerHour > 100 || (st.Burst && st.Size >= 10) },
		func(st Stats) string {
			if st.Burst {
				return fmt.Sprintf("Burst of %d events with no measurable time spread", st.Size)
			}
			return fmt.Sprintf("Elevated event rate: %.0f events per hour", st.EventsPerHour)
		},
	},
	{
		func(st Stats) bool { return st.AvgRisk > 70 },
		func(st Stats) string { return fmt.Sprintf("High average risk score: %.1f", st.AvgRisk) },
	},
	{
		func(st Stats) bool { return st.DestructiveRate > 0 },
		func(st Stats) string { return "Destructive operations (delete/terminate) present" },
	},
	{
		func(st Stats) bool { return st.AdminRate > 0 || st.PrivilegeEvents > 0 },
		func(st Stats) string { return "Account or policy modification operations present" },
	},
	{
		func(st Stats) bool { return st.ReadRate > 0.7 },
		func(st Stats) string { return fmt.Sprintf("Read-heavy access pattern: %.0f%% data-access calls", st.ReadRate*100) },
	},
	{
		func(st Stats) bool { return !st.Burst && st.SpanSeconds > 0 && st.SpanSeconds < 300 && st.Size >= 5 },
		func(st Stats) string { return fmt.Sprintf("Compressed time span: %d events within %s", st.Size, st.TimeSpan) },
	},
	{
		func(st Stats) bool { return st.TaggedEvents > 0 },
		func(st Stats) string { return fmt.Sprintf("%d events matched detection rules", st.TaggedEvents) },
	},
}

// RiskFactors returns the ordered risk-factor strings for a cluster.
func RiskFactors(st Stats) []string {
	out := make([]string, 0, 4)
	for _, rule := range riskFactorRules {
		if rule.Applies(st) {
			out = append(out, rule.Render(st))
		}
	}
	return out
}
