package threat

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"threatcluster/pkg/models"
)

// Stats is the statistical signature of one cluster. It is computed once and
// shared by the analyzer, the attack classifier and the explanation generator
// so that all three agree on what they saw.
type Stats struct {
	Size    int
	AvgRisk float64

	ErrorRate    float64
	RootUserRate float64

	UniqueIPs        int
	UniqueRegions    int
	UniqueUsers      int
	UniqueEventTypes int
	MaxIPShare       float64
	MaxEventShare    float64

	// Burst marks a zero time span (all events share one timestamp). In that
	// case EventsPerHour carries the raw event count as a burst-size
	// indicator instead of a rate.
	Burst         bool
	EventsPerHour float64
	SpanSeconds   float64
	TimeSpan      string
	FirstSeen     time.Time
	LastSeen      time.Time

	// IntervalCV is the coefficient of variation of inter-arrival intervals
	// (stddev over mean); high values mean irregular timing.
	IntervalCV float64

	DestructiveRate float64
	AdminRate       float64
	ReadRate        float64
	ResourceRate    float64

	PrivilegeEvents int
	LoginEvents     int
	TaggedEvents    int

	Regions []string
	Users   []string
}

// ComputeStats derives the cluster signature from its member events.
func ComputeStats(events []*models.LogEvent) Stats {
	st := Stats{Size: len(events)}
	if len(events) == 0 {
		return st
	}

	ips := make(map[string]int, len(events))
	regions := make(map[string]struct{}, 8)
	users := make(map[string]struct{}, 16)
	eventTypes := make(map[string]int, 16)

	var riskSum float64
	var errors, roots int
	var destructive, admin, reads, resource int
	timestamps := make([]time.Time, 0, len(events))

	for _, ev := range events {
		if ev == nil {
			continue
		}
		riskSum += ev.RiskScore
		if ev.Failed() {
			errors++
		}
		if ev.IsRoot() {
			roots++
		}
		if ev.SourceIP != "" {
			ips[ev.SourceIP]++
		}
		if ev.AWSRegion != "" {
			regions[ev.AWSRegion] = struct{}{}
		}
		if ev.UserName != "" {
			users[ev.UserName] = struct{}{}
		}
		if ev.EventName != "" {
			eventTypes[ev.EventName]++
		}
		if isDestructiveEvent(ev.EventName) {
			destructive++
		}
		if isAdminEvent(ev.EventName) {
			admin++
		}
		if isReadEvent(ev.EventName) {
			reads++
		}
		if isResourceEvent(ev.EventName) {
			resource++
		}
		if isPrivilegeEscalationEvent(ev.EventName) {
			st.PrivilegeEvents++
		}
		if isLoginEvent(ev.EventName) {
			st.LoginEvents++
		}
		if len(ev.DetectionTags) > 0 {
			st.TaggedEvents++
		}
		if !ev.Timestamp.IsZero() {
			timestamps = append(timestamps, ev.Timestamp)
		}
	}

	n := float64(len(events))
	st.AvgRisk = riskSum / n
	st.ErrorRate = float64(errors) / n
	st.RootUserRate = float64(roots) / n
	st.DestructiveRate = float64(destructive) / n
	st.AdminRate = float64(admin) / n
	st.ReadRate = float64(reads) / n
	st.ResourceRate = float64(resource) / n

	st.UniqueIPs = len(ips)
	st.UniqueRegions = len(regions)
	st.UniqueUsers = len(users)
	st.UniqueEventTypes = len(eventTypes)
	st.MaxIPShare = maxShare(ips, len(events))
	st.MaxEventShare = maxShare(eventTypes, len(events))
	st.Regions = sortedKeys(regions)
	st.Users = sortedKeys(users)

	computeTiming(&st, timestamps)
	return st
}

func computeTiming(st *Stats, timestamps []time.Time) {
	if len(timestamps) == 0 {
		st.Burst = true
		st.EventsPerHour = float64(st.Size)
		st.TimeSpan = "unknown"
		return
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })
	st.FirstSeen = timestamps[0]
	st.LastSeen = timestamps[len(timestamps)-1]

	span := st.LastSeen.Sub(st.FirstSeen)
	st.SpanSeconds = span.Seconds()
	st.TimeSpan = humanSpan(span)

	if span <= 0 {
		st.Burst = true
		st.EventsPerHour = float64(st.Size)
	} else {
		st.EventsPerHour = float64(st.Size) / span.Hours()
	}

	if len(timestamps) >= 3 && span > 0 {
		intervals := make([]float64, 0, len(timestamps)-1)
		for i := 1; i < len(timestamps); i++ {
			intervals = append(intervals, timestamps[i].Sub(timestamps[i-1]).Seconds())
		}
		var sum float64
		for _, iv := range intervals {
			sum += iv
		}
		mean := sum / float64(len(intervals))
		if mean > 0 {
			var sq float64
			for _, iv := range intervals {
				d := iv - mean
				sq += d * d
			}
			st.IntervalCV = math.Sqrt(sq/float64(len(intervals))) / mean
		}
	}
}

func humanSpan(span time.Duration) string {
	switch {
	case span <= 0:
		return "instant"
	case span < time.Minute:
		return fmt.Sprintf("%d seconds", int(span.Seconds()))
	case span < time.Hour:
		return fmt.Sprintf("%d minutes", int(span.Minutes()))
	case span < 48*time.Hour:
		return fmt.Sprintf("%.1f hours", span.Hours())
	default:
		return fmt.Sprintf("%.1f days", span.Hours()/24)
	}
}

func maxShare(counts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	return float64(best) / float64(total)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var destructivePrefixes = []string{"Delete", "Terminate", "Remove", "Disable", "Deactivate"}

var adminEvents = map[string]struct{}{
	"CreateUser":             {},
	"CreateRole":             {},
	"CreateGroup":            {},
	"CreateAccessKey":        {},
	"CreateLoginProfile":     {},
	"AttachUserPolicy":       {},
	"AttachRolePolicy":       {},
	"AttachGroupPolicy":      {},
	"PutUserPolicy":          {},
	"PutRolePolicy":          {},
	"AddUserToGroup":         {},
	"UpdateAssumeRolePolicy": {},
}

var privilegeEscalationEvents = map[string]struct{}{
	"AttachRolePolicy":        {},
	"AttachUserPolicy":        {},
	"PutRolePolicy":           {},
	"PutUserPolicy":           {},
	"CreatePolicyVersion":     {},
	"SetDefaultPolicyVersion": {},
	"PassRole":                {},
	"UpdateAssumeRolePolicy":  {},
	"AddUserToGroup":          {},
	"CreateAccessKey":         {},
	"CreateLoginProfile":      {},
	"UpdateLoginProfile":      {},
}

var resourceEvents = map[string]struct{}{
	"RunInstances":         {},
	"StartInstances":       {},
	"RequestSpotInstances": {},
	"CreateCluster":        {},
	"CreateFunction":       {},
}

func isDestructiveEvent(name string) bool {
	for _, p := range destructivePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func isAdminEvent(name string) bool {
	_, ok := adminEvents[name]
	return ok
}

func isReadEvent(name string) bool {
	return strings.HasPrefix(name, "Get") ||
		strings.HasPrefix(name, "List") ||
		strings.HasPrefix(name, "Describe") ||
		strings.HasPrefix(name, "Head")
}

func isResourceEvent(name string) bool {
	_, ok := resourceEvents[name]
	return ok
}

func isPrivilegeEscalationEvent(name string) bool {
	_, ok := privilegeEscalationEvents[name]
	return ok
}

func isLoginEvent(name string) bool {
	return name == "ConsoleLogin" || name == "GetSessionToken" || name == "AssumeRole"
}
