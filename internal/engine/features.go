package engine

import (
	"threatcluster/pkg/models"
)

// featureDim is the fixed length of a feature vector: normalized risk,
// normalized time position, and hashed region / identity type / error code.
const featureDim = 5

const hashBuckets = 1000

// extractFeatures converts events into normalized vectors, positional-
// parallel to the input. Every component lies in [0,1]. Events missing
// fields are repaired with neutral sentinels rather than failing the batch.
func extractFeatures(events []*models.LogEvent) [][]float64 {
	minRisk, maxRisk := events[0].RiskScore, events[0].RiskScore
	var minTS, maxTS int64
	first := true
	for _, ev := range events {
		if ev.RiskScore < minRisk {
			minRisk = ev.RiskScore
		}
		if ev.RiskScore > maxRisk {
			maxRisk = ev.RiskScore
		}
		if ev.Timestamp.IsZero() {
			continue
		}
		ms := ev.Timestamp.UnixMilli()
		if first {
			minTS, maxTS = ms, ms
			first = false
			continue
		}
		if ms < minTS {
			minTS = ms
		}
		if ms > maxTS {
			maxTS = ms
		}
	}

	vectors := make([][]float64, len(events))
	for i, ev := range events {
		region := ev.AWSRegion
		if region == "" {
			region = "unknown"
		}
		identity := ev.UserIdentityType
		if identity == "" {
			identity = "unknown"
		}
		errCode := ev.ErrorCode
		if errCode == "" {
			errCode = models.NoError
		}

		ts := minTS
		if !ev.Timestamp.IsZero() {
			ts = ev.Timestamp.UnixMilli()
		}

		vectors[i] = []float64{
			normalize(ev.RiskScore, minRisk, maxRisk),
			normalize(float64(ts), float64(minTS), float64(maxTS)),
			hashFeature(region),
			hashFeature(identity),
			hashFeature(errCode),
		}
	}
	return vectors
}

// normalize min-max scales v into [0,1], defaulting to 0.5 when the batch is
// degenerate (min == max).
func normalize(v, min, max float64) float64 {
	if max <= min {
		return 0.5
	}
	return (v - min) / (max - min)
}

// hashFeature maps a category string into [0,1) via a polynomial hash.
// Distinct values can collide into the same coordinate; that approximation is
// accepted in exchange for a fixed-width encoding.
func hashFeature(s string) float64 {
	var h int64
	for _, c := range s {
		h = (h*31 + int64(c)) % 1000003
	}
	if h < 0 {
		h = -h
	}
	return float64(h%hashBuckets) / float64(hashBuckets)
}
