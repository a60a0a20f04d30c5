package threat

import (
	"math"

	"threatcluster/pkg/models"
)

// Assessment is the analyzer's verdict for one cluster.
type Assessment struct {
	Level      string
	Composite  float64
	Confidence float64
}

// Analyzer classifies clusters into threat levels via a multi-signal
// composite score compared against size-adjusted thresholds.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an analyzer, filling unset config fields with defaults.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.withDefaults()}
}

// Assess combines seven signal groups into one composite score in [0,100]
// and maps it to a threat level. Larger clusters face lower thresholds: the
// volume itself is corroborating evidence.
func (a *Analyzer) Assess(st Stats) Assessment {
	base := math.Min(a.cfg.BaseCap, st.AvgRisk*a.cfg.BaseWeight)
	behavioral := a.behavioralScore(st) * a.cfg.BehavioralWeight
	contextual := math.Min(a.cfg.ContextualCap, a.contextualScore(st)*a.cfg.ContextualWeight)
	anomaly := a.anomalyScore(st) * a.cfg.AnomalyWeight
	temporal := math.Min(a.cfg.TemporalCap, a.temporalScore(st)*a.cfg.TemporalWeight)
	diversity := math.Min(a.cfg.DiversityCap, a.diversityScore(st)*a.cfg.DiversityWeight)

	sum := base + behavioral + contextual + anomaly + temporal + diversity
	composite := clamp(sum*a.landscapeMultiplier(st.AvgRisk), 0, 100)

	adjust := math.Min(a.cfg.VolumeAdjustCap, math.Log1p(float64(st.Size))*a.cfg.VolumeAdjustScale)

	level := models.ThreatLow
	switch {
	case composite >= a.cfg.CriticalThreshold-adjust:
		level = models.ThreatCritical
	case composite >= a.cfg.HighThreshold-adjust:
		level = models.ThreatHigh
	case composite >= a.cfg.MediumThreshold-adjust:
		level = models.ThreatMedium
	}

	return Assessment{
		Level:      level,
		Composite:  composite,
		Confidence: confidence(st, composite),
	}
}

// Thresholds returns the effective critical/high/medium cut points for a
// cluster of the given size.
func (a *Analyzer) Thresholds(size int) (critical, high, medium float64) {
	adjust := math.Min(a.cfg.VolumeAdjustCap, math.Log1p(float64(size))*a.cfg.VolumeAdjustScale)
	return a.cfg.CriticalThreshold - adjust, a.cfg.HighThreshold - adjust, a.cfg.MediumThreshold - adjust
}

// behavioralScore averages user, source-IP and geographic behavior, each on a
// 0-100 scale.
func (a *Analyzer) behavioralScore(st Stats) float64 {
	user := st.RootUserRate*45 +
		math.Min(25, float64(st.UniqueUsers)*5) +
		math.Min(30, float64(st.PrivilegeEvents)*10)

	ip := math.Min(30, float64(st.UniqueIPs)*4) + st.ErrorRate*40
	if st.MaxIPShare > 0.8 && st.Size >= 10 {
		ip += 30
	}

	var geo float64
	switch {
	case st.UniqueRegions >= 4:
		geo = 70
	case st.UniqueRegions == 3:
		geo = 45
	case st.UniqueRegions == 2:
		geo = 20
	}
	if st.UniqueRegions == 1 && st.Size >= 20 {
		geo = 15
	}

	return (clamp(user, 0, 100) + clamp(ip, 0, 100) + clamp(geo, 0, 100)) / 3
}

func (a *Analyzer) contextualScore(st Stats) float64 {
	score := st.DestructiveRate*40 + st.AdminRate*35 + st.ErrorRate*25
	if st.ReadRate > 0.7 {
		score += 15
	}
	return clamp(score, 0, 100)
}

func (a *Analyzer) anomalyScore(st Stats) float64 {
	z := math.Abs(st.AvgRisk-a.cfg.PopulationMeanRisk) / a.cfg.PopulationStdDev

	var density float64
	switch {
	case st.EventsPerHour > 500:
		density = 30
	case st.EventsPerHour > 100:
		density = 20
	case st.EventsPerHour > 30:
		density = 10
	}

	var irregular float64
	if st.IntervalCV > 2 {
		irregular = 20
	} else if st.IntervalCV > 1 {
		irregular = 10
	}

	var concentration float64
	if st.MaxEventShare > 0.9 && st.Size >= 5 {
		concentration = 15
	}

	return clamp(z*20+density+irregular+concentration, 0, 100)
}

func (a *Analyzer) temporalScore(st Stats) float64 {
	var score float64
	if st.Burst && st.Size >= 10 {
		score += 50
	}
	switch {
	case st.EventsPerHour > 1000:
		score += 40
	case st.EventsPerHour > 200:
		score += 25
	case st.EventsPerHour > 60:
		score += 10
	}
	if st.IntervalCV > 2.5 {
		score += 25
	}
	return clamp(score, 0, 100)
}

// diversityScore is nonlinear: both extremes of diversity are suspicious. A
// single IP hitting many events is as notable as hundreds of IPs.
func (a *Analyzer) diversityScore(st Stats) float64 {
	var score float64

	switch {
	case st.UniqueIPs > 20:
		score += 35
	case st.UniqueIPs > 8:
		score += 20
	case st.UniqueIPs == 1 && st.Size >= 10:
		score += 30
	}

	switch {
	case st.UniqueRegions > 4:
		score += 25
	case st.UniqueRegions > 2:
		score += 12
	}

	switch {
	case st.UniqueUsers > 10:
		score += 20
	case st.UniqueUsers == 1 && st.Size >= 15:
		score += 12
	}

	switch {
	case st.UniqueEventTypes > 12:
		score += 20
	case st.UniqueEventTypes == 1 && st.Size >= 10:
		score += 15
	}

	return clamp(score, 0, 100)
}

func (a *Analyzer) landscapeMultiplier(avgRisk float64) float64 {
	switch {
	case avgRisk >= 75:
		return a.cfg.LandscapeSevereFactor
	case avgRisk >= 60:
		return 1.1
	case avgRisk >= 40:
		return 1.0
	default:
		return a.cfg.LandscapeCalmFactor
	}
}

// confidence grows with cluster size and signal strength; it is descriptive,
// not probabilistic.
func confidence(st Stats, composite float64) float64 {
	return clamp(30+composite*0.5+math.Min(20, float64(st.Size)*1.5), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
