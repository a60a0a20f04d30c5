package pipeline

import "threatcluster/pkg/models"

// ResultWriter writes completed clustering results.
type ResultWriter interface {
	WriteResult(result *models.ClusteringResult) error
	Close() error
}
