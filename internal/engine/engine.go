package engine

import (
	"fmt"
	"sort"
	"time"

	"threatcluster/internal/logger"
	"threatcluster/internal/threat"
	"threatcluster/pkg/models"
)

// Params controls one clustering run.
type Params struct {
	K                   int     `json:"k" yaml:"k"`
	MinClusterSize      int     `json:"min_cluster_size" yaml:"min_cluster_size"`
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
	TimeWindow          int     `json:"time_window" yaml:"time_window"`
}

// InsufficientDataError means the input cannot support the requested
// clustering: empty input or k greater than the number of events.
type InsufficientDataError struct {
	Events int
	K      int
}

func (e *InsufficientDataError) Error() string {
	if e.Events == 0 {
		return "insufficient data: no input events"
	}
	return fmt.Sprintf("insufficient data: %d events for k=%d clusters", e.Events, e.K)
}

// Engine runs the full clustering-and-threat-scoring sequence. Safe for
// concurrent use: every run owns its own random source.
type Engine struct {
	params   Params
	analyzer *threat.Analyzer
}

// New creates an engine, filling unset parameters with the
// standard-detection preset values.
func New(params Params, scoring threat.Config) *Engine {
	if params.K <= 0 {
		params.K = 5
	}
	if params.MinClusterSize <= 0 {
		params.MinClusterSize = 3
	}
	if params.SimilarityThreshold <= 0 {
		params.SimilarityThreshold = 0.7
	}
	if params.TimeWindow <= 0 {
		params.TimeWindow = 24
	}
	return &Engine{
		params:   params,
		analyzer: threat.NewAnalyzer(scoring),
	}
}

// Run clusters the given events and annotates every cluster with threat
// metadata. Every event lands in exactly one cluster. Two runs with
// identical input produce identical output.
func (e *Engine) Run(events []*models.LogEvent) (*models.ClusteringResult, error) {
	start := time.Now()

	if len(events) == 0 {
		return nil, &InsufficientDataError{Events: 0, K: e.params.K}
	}
	k := e.params.K
	if k > len(events) {
		return nil, &InsufficientDataError{Events: len(events), K: k}
	}

	rng := newRandSource()
	vectors := extractFeatures(events)
	centroids := initCentroids(vectors, k, rng)
	assignments, centroids := lloyd(vectors, centroids, rng)

	byCluster := make([][]*models.LogEvent, k)
	for i, c := range assignments {
		byCluster[c] = append(byCluster[c], events[i])
	}

	clusters := make([]models.Cluster, 0, k)
	for id, members := range byCluster {
		clusters = append(clusters, e.buildCluster(id, members))
	}

	result := &models.ClusteringResult{
		Clusters:    clusters,
		TotalEvents: len(events),
		Metrics: models.AlgorithmMetrics{
			SilhouetteScore:        silhouetteScore(vectors, assignments, k),
			WithinClusterVariance:  withinClusterVariance(vectors, assignments, centroids),
			BetweenClusterVariance: betweenClusterVariance(centroids),
			ProcessingTime:         time.Since(start),
		},
		Threats:     e.summarize(clusters, events),
		GeneratedAt: time.Now().UTC(),
	}

	logger.Debugf("clustering run complete: events=%d k=%d silhouette=%.0f elapsed=%s",
		len(events), k, result.Metrics.SilhouetteScore, result.Metrics.ProcessingTime)
	return result, nil
}

func (e *Engine) buildCluster(id int, members []*models.LogEvent) models.Cluster {
	st := threat.ComputeStats(members)
	assessment := e.analyzer.Assess(st)
	attackType := threat.Classify(st)

	return models.Cluster{
		ID:               id,
		ThreatLevel:      assessment.Level,
		AttackType:       attackType,
		Confidence:       assessment.Confidence,
		Size:             len(members),
		TimeSpan:         st.TimeSpan,
		GeographicSpread: st.Regions,
		UserTargets:      st.Users,
		Explanation:      threat.Explain(st, attackType, assessment.Level),
		RiskFactors:      threat.RiskFactors(st),
		Events:           members,
	}
}

func (e *Engine) summarize(clusters []models.Cluster, events []*models.LogEvent) models.ThreatAnalysis {
	origins := make(map[string]struct{}, 8)
	summary := models.ThreatAnalysis{
		EventRiskBands: map[string]int{},
	}

	for _, c := range clusters {
		if c.ThreatLevel != models.ThreatLow {
			summary.TotalThreats++
		}
		if c.ThreatLevel == models.ThreatHigh || c.ThreatLevel == models.ThreatCritical {
			summary.HighRiskClusters++
		}
		if c.Size >= e.params.MinClusterSize && c.ThreatLevel != models.ThreatLow {
			summary.AttackCampaigns++
		}
		for _, region := range c.GeographicSpread {
			origins[region] = struct{}{}
		}
	}

	for _, ev := range events {
		summary.EventRiskBands[riskBand(ev.RiskScore)]++
	}

	summary.GeographicOrigins = make([]string, 0, len(origins))
	for region := range origins {
		summary.GeographicOrigins = append(summary.GeographicOrigins, region)
	}
	sort.Strings(summary.GeographicOrigins)
	return summary
}

// riskBand maps an upstream risk score to the dashboard's severity bands.
func riskBand(score float64) string {
	switch {
	case score >= 80:
		return models.ThreatCritical
	case score >= 60:
		return models.ThreatHigh
	case score >= 40:
		return models.ThreatMedium
	default:
		return models.ThreatLow
	}
}
