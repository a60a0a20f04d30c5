package threat

// Config carries the analyzer's weights, caps and thresholds. The defaults
// reflect a moderate tuning pass; every field is overridable from the yaml
// config so the model can be recalibrated without touching control flow.
type Config struct {
	BaseWeight float64 `yaml:"base_weight"`
	BaseCap    float64 `yaml:"base_cap"`

	BehavioralWeight float64 `yaml:"behavioral_weight"`

	ContextualWeight float64 `yaml:"contextual_weight"`
	ContextualCap    float64 `yaml:"contextual_cap"`

	AnomalyWeight float64 `yaml:"anomaly_weight"`

	TemporalWeight float64 `yaml:"temporal_weight"`
	TemporalCap    float64 `yaml:"temporal_cap"`

	DiversityWeight float64 `yaml:"diversity_weight"`
	DiversityCap    float64 `yaml:"diversity_cap"`

	// Population baseline for the anomaly z-score.
	PopulationMeanRisk float64 `yaml:"population_mean_risk"`
	PopulationStdDev   float64 `yaml:"population_std_dev"`

	// Threat-landscape multiplier bounds applied to the summed composite.
	LandscapeCalmFactor   float64 `yaml:"landscape_calm_factor"`
	LandscapeSevereFactor float64 `yaml:"landscape_severe_factor"`

	// Static threshold bases; the effective thresholds shrink with cluster
	// size via the bounded volume adjustment.
	CriticalThreshold float64 `yaml:"critical_threshold"`
	HighThreshold     float64 `yaml:"high_threshold"`
	MediumThreshold   float64 `yaml:"medium_threshold"`
	VolumeAdjustScale float64 `yaml:"volume_adjust_scale"`
	VolumeAdjustCap   float64 `yaml:"volume_adjust_cap"`
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		BaseWeight:            0.45,
		BaseCap:               35,
		BehavioralWeight:      0.35,
		ContextualWeight:      0.25,
		ContextualCap:         25,
		AnomalyWeight:         0.20,
		TemporalWeight:        0.15,
		TemporalCap:           15,
		DiversityWeight:       0.20,
		DiversityCap:          20,
		PopulationMeanRisk:    50,
		PopulationStdDev:      18,
		LandscapeCalmFactor:   0.92,
		LandscapeSevereFactor: 1.2,
		CriticalThreshold:     82,
		HighThreshold:         62,
		MediumThreshold:       40,
		VolumeAdjustScale:     1.6,
		VolumeAdjustCap:       9,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	fill := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	fill(&c.BaseWeight, def.BaseWeight)
	fill(&c.BaseCap, def.BaseCap)
	fill(&c.BehavioralWeight, def.BehavioralWeight)
	fill(&c.ContextualWeight, def.ContextualWeight)
	fill(&c.ContextualCap, def.ContextualCap)
	fill(&c.AnomalyWeight, def.AnomalyWeight)
	fill(&c.TemporalWeight, def.TemporalWeight)
	fill(&c.TemporalCap, def.TemporalCap)
	fill(&c.DiversityWeight, def.DiversityWeight)
	fill(&c.DiversityCap, def.DiversityCap)
	fill(&c.PopulationMeanRisk, def.PopulationMeanRisk)
	fill(&c.PopulationStdDev, def.PopulationStdDev)
	fill(&c.LandscapeCalmFactor, def.LandscapeCalmFactor)
	fill(&c.LandscapeSevereFactor, def.LandscapeSevereFactor)
	fill(&c.CriticalThreshold, def.CriticalThreshold)
	fill(&c.HighThreshold, def.HighThreshold)
	fill(&c.MediumThreshold, def.MediumThreshold)
	fill(&c.VolumeAdjustScale, def.VolumeAdjustScale)
	fill(&c.VolumeAdjustCap, def.VolumeAdjustCap)
	return c
}
