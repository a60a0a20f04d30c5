package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"threatcluster/config"
	"threatcluster/internal/engine"
	inputredis "threatcluster/internal/input/redis"
	"threatcluster/internal/logger"
	"threatcluster/internal/metrics"
	"threatcluster/internal/output/clusterclickhouse"
	"threatcluster/internal/output/clusterhttp"
	"threatcluster/internal/output/clusterjson"
	"threatcluster/internal/pipeline"
	"threatcluster/internal/resultstore"
	"threatcluster/internal/rules"
	"threatcluster/internal/threat"
	"threatcluster/internal/transform/cloudtrail"
	"threatcluster/pkg/models"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("threatcluster.yml"); err == nil {
		return "threatcluster.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "threatcluster.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "threatcluster.yml"
}

func applyDefaults(cfg *config.Config) {
	if cfg.ThreatCluster.Input.Redis.Addr == "" {
		cfg.ThreatCluster.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.ThreatCluster.Input.Redis.Key == "" {
		cfg.ThreatCluster.Input.Redis.Key = "audit_log_events"
	}
	if cfg.ThreatCluster.Input.Redis.BlockTimeout == 0 {
		cfg.ThreatCluster.Input.Redis.BlockTimeout = 5 * time.Second
	}

	if cfg.ThreatCluster.Pipeline.Workers <= 0 {
		cfg.ThreatCluster.Pipeline.Workers = 4
	}
	if cfg.ThreatCluster.Pipeline.BatchSize <= 0 {
		cfg.ThreatCluster.Pipeline.BatchSize = 500
	}
	if cfg.ThreatCluster.Pipeline.FlushInterval <= 0 {
		cfg.ThreatCluster.Pipeline.FlushInterval = 30 * time.Second
	}

	if cfg.ThreatCluster.Clustering.Preset == "" && cfg.ThreatCluster.Clustering.K <= 0 {
		cfg.ThreatCluster.Clustering.Preset = "standard-detection"
	}

	if cfg.ThreatCluster.Output.Mode == "" {
		cfg.ThreatCluster.Output.Mode = "file"
	}
	if cfg.ThreatCluster.Output.File.Path == "" {
		cfg.ThreatCluster.Output.File.Path = "output/clusters.jsonl"
	}
	if cfg.ThreatCluster.Output.ClickHouse.Database == "" {
		cfg.ThreatCluster.Output.ClickHouse.Database = "threatcluster"
	}
	if cfg.ThreatCluster.Output.ClickHouse.Table == "" {
		cfg.ThreatCluster.Output.ClickHouse.Table = "clusters"
	}

	if cfg.ThreatCluster.Metrics.Addr == "" {
		cfg.ThreatCluster.Metrics.Addr = ":9204"
	}

	if cfg.ThreatCluster.Logging.Level == "" {
		cfg.ThreatCluster.Logging.Level = "info"
	}
}

func resolveParams(cc config.ClusteringConfig) (engine.Params, error) {
	var params engine.Params
	if cc.Preset != "" {
		preset, ok := engine.Preset(cc.Preset)
		if !ok {
			return params, fmt.Errorf("unknown clustering preset %q (available: %s)", cc.Preset, strings.Join(engine.PresetNames(), ", "))
		}
		params = preset
	}
	if cc.K > 0 {
		params.K = cc.K
	}
	if cc.MinClusterSize > 0 {
		params.MinClusterSize = cc.MinClusterSize
	}
	if cc.SimilarityThreshold > 0 {
		params.SimilarityThreshold = cc.SimilarityThreshold
	}
	if cc.TimeWindow > 0 {
		params.TimeWindow = cc.TimeWindow
	}
	return params, nil
}

func runServe(args []string) {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}

	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)

	if err := logger.Init(cfg.ThreatCluster.Logging.Enabled, cfg.ThreatCluster.Logging.Level, cfg.ThreatCluster.Logging.File, cfg.ThreatCluster.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("ThreatCluster starting")
	logger.Infof("Config loaded from: %s", configPath)

	params, err := resolveParams(cfg.ThreatCluster.Clustering)
	if err != nil {
		logger.Errorf("Invalid clustering config: %v", err)
		log.Fatalf("Invalid clustering config: %v", err)
	}

	consumer, err := inputredis.NewConsumer(inputredis.Config{
		Addr:         cfg.ThreatCluster.Input.Redis.Addr,
		Password:     cfg.ThreatCluster.Input.Redis.Password,
		DB:           cfg.ThreatCluster.Input.Redis.DB,
		Key:          cfg.ThreatCluster.Input.Redis.Key,
		BlockTimeout: cfg.ThreatCluster.Input.Redis.BlockTimeout,
	})
	if err != nil {
		logger.Errorf("Failed to create Redis consumer: %v", err)
		log.Fatalf("Failed to create Redis consumer: %v", err)
	}

	var ruleEngine rules.Engine
	if cfg.ThreatCluster.Rules.Enabled {
		if strings.TrimSpace(cfg.ThreatCluster.Rules.Path) == "" {
			logger.Warnf("Rules enabled but rules.path is empty; detection tagging disabled")
		} else {
			sigmaEngine, stats, err := rules.NewSigmaEngine(cfg.ThreatCluster.Rules.Path)
			if err != nil {
				logger.Errorf("Failed to load Sigma rules from %s: %v", cfg.ThreatCluster.Rules.Path, err)
				log.Fatalf("Failed to load Sigma rules: %v", err)
			}
			ruleEngine = sigmaEngine
			logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
				stats.Loaded,
				stats.SkippedComplex,
				stats.SkippedDatasource,
				stats.SkippedInvalid,
				stats.TotalFiles,
			)
			if stats.Loaded == 0 {
				logger.Warnf("No compatible Sigma rules loaded; detection tagging is effectively disabled")
			}
		}
	}

	var writers []pipeline.ResultWriter
	switch cfg.ThreatCluster.Output.Mode {
	case "file":
		w, err := clusterjson.NewWriter(cfg.ThreatCluster.Output.File.Path)
		if err != nil {
			logger.Errorf("Failed to create result file writer: %v", err)
			log.Fatalf("Failed to create result file writer: %v", err)
		}
		writers = append(writers, w)
		logger.Infof("Output mode: file (%s)", cfg.ThreatCluster.Output.File.Path)
	case "http":
		w, err := clusterhttp.NewWriter(clusterhttp.Config{
			URL:     cfg.ThreatCluster.Output.HTTP.URL,
			Timeout: cfg.ThreatCluster.Output.HTTP.Timeout,
			Headers: cfg.ThreatCluster.Output.HTTP.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create result HTTP writer: %v", err)
			log.Fatalf("Failed to create result HTTP writer: %v", err)
		}
		writers = append(writers, w)
		logger.Infof("Output mode: http (%s)", cfg.ThreatCluster.Output.HTTP.URL)
	case "clickhouse":
		w, err := clusterclickhouse.NewWriter(clusterclickhouse.Config{
			URL:      cfg.ThreatCluster.Output.ClickHouse.URL,
			Database: cfg.ThreatCluster.Output.ClickHouse.Database,
			Table:    cfg.ThreatCluster.Output.ClickHouse.Table,
			Username: cfg.ThreatCluster.Output.ClickHouse.Username,
			Password: cfg.ThreatCluster.Output.ClickHouse.Password,
			Timeout:  cfg.ThreatCluster.Output.ClickHouse.Timeout,
			Headers:  cfg.ThreatCluster.Output.ClickHouse.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create ClickHouse writer: %v", err)
			log.Fatalf("Failed to create ClickHouse writer: %v", err)
		}
		writers = append(writers, w)
		logger.Infof("Output mode: clickhouse (%s/%s.%s)", cfg.ThreatCluster.Output.ClickHouse.URL, cfg.ThreatCluster.Output.ClickHouse.Database, cfg.ThreatCluster.Output.ClickHouse.Table)
	default:
		log.Fatalf("Unknown output mode: %s", cfg.ThreatCluster.Output.Mode)
	}

	var store *resultstore.RedisStore
	if cfg.ThreatCluster.ResultStore.Enabled {
		store, err = resultstore.NewRedisStore(resultstore.RedisConfig{
			Addr:      cfg.ThreatCluster.ResultStore.Addr,
			Password:  cfg.ThreatCluster.ResultStore.Password,
			DB:        cfg.ThreatCluster.ResultStore.DB,
			KeyPrefix: cfg.ThreatCluster.ResultStore.KeyPrefix,
			TTL:       cfg.ThreatCluster.ResultStore.TTL,
			KeepLast:  cfg.ThreatCluster.ResultStore.KeepLast,
		})
		if err != nil {
			logger.Errorf("Failed to create result store: %v", err)
			log.Fatalf("Failed to create result store: %v", err)
		}
		logger.Infof("Result store enabled (%s)", cfg.ThreatCluster.ResultStore.Addr)
	}

	if cfg.ThreatCluster.Metrics.Enabled {
		metrics.Serve(cfg.ThreatCluster.Metrics.Addr)
	}

	minBatch := cfg.ThreatCluster.Pipeline.MinBatch
	if minBatch < params.K {
		minBatch = params.K
	}

	eng := engine.New(params, cfg.ThreatCluster.Scoring)
	pipe := pipeline.NewRedisClusterPipeline(
		consumer,
		ruleEngine,
		eng,
		writers,
		store,
		cfg.ThreatCluster.Pipeline.Workers,
		cfg.ThreatCluster.Pipeline.BatchSize,
		minBatch,
		cfg.ThreatCluster.Pipeline.FlushInterval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := pipe.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("Pipeline error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()
	time.Sleep(1 * time.Second)

	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}

	logger.Infof("ThreatCluster stopped")
}

func runAnalyze(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	input := fs.String("input", "events.jsonl", "Audit-log events JSONL input path")
	output := fs.String("output", "output/result.json", "Clustering result JSON output path")
	preset := fs.String("preset", "standard-detection", "Parameter preset name")
	k := fs.Int("k", 0, "Cluster count override")
	minClusterSize := fs.Int("min-cluster-size", 0, "Attack-campaign size threshold override")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	events, err := loadEventsJSONL(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load events: %v\n", err)
		return 1
	}

	params, err := resolveParams(config.ClusteringConfig{
		Preset:         *preset,
		K:              *k,
		MinClusterSize: *minClusterSize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	eng := engine.New(params, threat.Config{})
	result, err := eng.Run(events)
	if err != nil {
		var insufficient *engine.InsufficientDataError
		if errors.As(err, &insufficient) {
			fmt.Fprintf(os.Stderr, "%v; retry with a smaller k or more events\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "clustering failed: %v\n", err)
		return 1
	}

	if err := writeResultJSON(*output, result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write result: %v\n", err)
		return 1
	}

	fmt.Printf("analyzed events=%d clusters=%d threats=%d silhouette=%.0f output=%s\n",
		result.TotalEvents, len(result.Clusters), result.Threats.TotalThreats, result.Metrics.SilhouetteScore, *output)
	return 0
}

func loadEventsJSONL(path string) ([]*models.LogEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []*models.LogEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		event, err := cloudtrail.Parse([]byte(line))
		if err != nil {
			log.Printf("Skipping unparseable line: %v", err)
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func writeResultJSON(path string, result interface{}) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			runServe(os.Args[2:])
			return
		case "analyze":
			os.Exit(runAnalyze(os.Args[2:]))
		default:
			// Backward-compatible mode: first arg is config path.
			runServe(os.Args[1:])
			return
		}
	}

	runServe(nil)
}
