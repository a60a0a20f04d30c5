package models

import "time"

// Threat levels assigned to clusters, ordered by severity.
const (
	ThreatLow      = "LOW"
	ThreatMedium   = "MEDIUM"
	ThreatHigh     = "HIGH"
	ThreatCritical = "CRITICAL"
)

// Cluster is one behaviorally coherent group of audit-log events, annotated
// with threat metadata. Created once per clustering run and never mutated.
type Cluster struct {
	ID               int         `json:"id"`
	ThreatLevel      string      `json:"threat_level"`
	AttackType       string      `json:"attack_type"`
	Confidence       float64     `json:"confidence"`
	Size             int         `json:"size"`
	TimeSpan         string      `json:"time_span"`
	GeographicSpread []string    `json:"geographic_spread"`
	UserTargets      []string    `json:"user_targets"`
	Explanation      string      `json:"explanation"`
	RiskFactors      []string    `json:"risk_factors"`
	Events           []*LogEvent `json:"events,omitempty"`
}

// AlgorithmMetrics describes how well-separated the clustering is.
type AlgorithmMetrics struct {
	SilhouetteScore        float64       `json:"silhouette_score"`
	WithinClusterVariance  float64       `json:"within_cluster_variance"`
	BetweenClusterVariance float64       `json:"between_cluster_variance"`
	ProcessingTime         time.Duration `json:"processing_time"`
}

// ThreatAnalysis aggregates threat counts across all clusters in a run.
type ThreatAnalysis struct {
	TotalThreats      int            `json:"total_threats"`
	HighRiskClusters  int            `json:"high_risk_clusters"`
	AttackCampaigns   int            `json:"attack_campaigns"`
	GeographicOrigins []string       `json:"geographic_origins"`
	EventRiskBands    map[string]int `json:"event_risk_bands,omitempty"`
}

// ClusteringResult is the output of one clustering run.
type ClusteringResult struct {
	Clusters    []Cluster        `json:"clusters"`
	TotalEvents int              `json:"total_events"`
	Metrics     AlgorithmMetrics `json:"metrics"`
	Threats     ThreatAnalysis   `json:"threat_analysis"`
	GeneratedAt time.Time        `json:"generated_at"`
}
