package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"threatcluster/internal/logger"
	"threatcluster/pkg/models"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatcluster_runs_total",
		Help: "Completed clustering runs.",
	})

	runFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatcluster_run_failures_total",
		Help: "Clustering runs that failed before producing a result.",
	})

	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatcluster_events_processed_total",
		Help: "Audit-log events fed into completed clustering runs.",
	})

	malformedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatcluster_malformed_events_total",
		Help: "Events repaired with sentinel values during parsing.",
	})

	clustersByLevel = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threatcluster_clusters_total",
		Help: "Clusters produced, by threat level.",
	}, []string{"threat_level"})

	processingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threatcluster_processing_seconds",
		Help:    "Clustering run duration.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)

// ObserveRun records one completed clustering run.
func ObserveRun(result *models.ClusteringResult) {
	if result == nil {
		return
	}
	runsTotal.Inc()
	eventsProcessed.Add(float64(result.TotalEvents))
	processingSeconds.Observe(result.Metrics.ProcessingTime.Seconds())
	for _, c := range result.Clusters {
		clustersByLevel.WithLabelValues(c.ThreatLevel).Inc()
	}
}

// ObserveRunFailure records a run that returned an error.
func ObserveRunFailure() {
	runFailures.Inc()
}

// ObserveMalformedEvent records one repaired event.
func ObserveMalformedEvent() {
	malformedEvents.Inc()
}

// Serve exposes the /metrics endpoint on the given address.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics server error: %v", err)
		}
	}()
	logger.Infof("Metrics endpoint listening on %s", addr)
}
