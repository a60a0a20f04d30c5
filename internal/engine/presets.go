package engine

// Presets are named parameter bundles for common investigation depths. They
// are pure configuration; the engine does not treat them specially.
var presets = map[string]Params{
	"rapid-analysis": {
		K:                   3,
		MinClusterSize:      2,
		SimilarityThreshold: 0.6,
		TimeWindow:          6,
	},
	"standard-detection": {
		K:                   5,
		MinClusterSize:      3,
		SimilarityThreshold: 0.7,
		TimeWindow:          24,
	},
	"deep-investigation": {
		K:                   8,
		MinClusterSize:      3,
		SimilarityThreshold: 0.75,
		TimeWindow:          72,
	},
	"enterprise-monitoring": {
		K:                   10,
		MinClusterSize:      5,
		SimilarityThreshold: 0.8,
		TimeWindow:          168,
	},
}

// Preset returns the named parameter bundle.
func Preset(name string) (Params, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames lists available presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
