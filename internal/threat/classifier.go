package threat

// Attack-type labels in classification priority order.
const (
	AttackBruteForce          = "Brute Force Attack"
	AttackCredentialStuffing  = "Credential Stuffing"
	AttackPrivilegeEscalation = "Privilege Escalation"
	AttackDataExfiltration    = "Data Exfiltration"
	AttackResourceAbuse       = "Resource Abuse"
	AttackDestructive         = "Destructive Attack"
	AttackReconnaissance      = "Reconnaissance"
	AttackAccountTakeover     = "Account Takeover"
	AttackAPIAbuse            = "API Abuse"
	AttackGeographicAnomaly   = "Geographic Anomaly"
	AttackTimeAnomaly         = "Time-based Anomaly"
	AttackSuspicious          = "Suspicious Activity"
	AttackNormal              = "Normal Activity"
)

// classifierRule pairs a label with its trigger condition.
type classifierRule struct {
	Label string
	Match func(Stats) bool
}

// classifierRules is a first-match-wins decision list. Order is the priority
// order; reordering changes behavior.
var classifierRules = []classifierRule{
	{AttackBruteForce, func(st Stats) bool {
		return st.ErrorRate > 0.8 && st.EventsPerHour > 50
	}},
	{AttackCredentialStuffing, func(st Stats) bool {
		return st.ErrorRate > 0.6 && st.UniqueIPs > 5
	}},
	{AttackPrivilegeEscalation, func(st Stats) bool {
		return st.PrivilegeEvents >= 2 || (st.RootUserRate > 0.3 && st.AdminRate > 0.1)
	}},
	{AttackDataExfiltration, func(st Stats) bool {
		return st.ReadRate > 0.6 && st.AvgRisk > 60
	}},
	{AttackResourceAbuse, func(st Stats) bool {
		return st.ResourceRate > 0.3
	}},
	{AttackDestructive, func(st Stats) bool {
		return st.DestructiveRate > 0.3
	}},
	{AttackReconnaissance, func(st Stats) bool {
		return st.ReadRate > 0.7 && st.ErrorRate > 0.25
	}},
	{AttackAccountTakeover, func(st Stats) bool {
		return st.LoginEvents > 0 && st.UniqueIPs > 3 && st.ErrorRate > 0.2
	}},
	{AttackAPIAbuse, func(st Stats) bool {
		return st.EventsPerHour > 200 && st.MaxEventShare > 0.5
	}},
	{AttackGeographicAnomaly, func(st Stats) bool {
		return st.UniqueRegions > 3
	}},
	{AttackTimeAnomaly, func(st Stats) bool {
		return !st.Burst && st.IntervalCV > 2.5 && st.Size >= 5
	}},
	{AttackSuspicious, func(st Stats) bool {
		return st.AvgRisk > 65 || st.ErrorRate > 0.4
	}},
}

// Classify assigns an attack-type label to a cluster from its signature.
// Falls through to Normal Activity when no rule matches.
func Classify(st Stats) string {
	for _, rule := range classifierRules {
		if rule.Match(st) {
			return rule.Label
		}
	}
	return AttackNormal
}
