package rules

import "threatcluster/pkg/models"

// Engine applies detection rules to individual events.
type Engine interface {
	Apply(event *models.LogEvent) []models.DetectionTag
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(event *models.LogEvent) []models.DetectionTag {
	return nil
}
