package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	raw := `
threatcluster:
  input:
    redis:
      addr: "redis:6379"
      key: "audit_log_events"
      block_timeout: 10s
  pipeline:
    workers: 8
    batch_size: 1000
    min_batch: 50
    flush_interval: 15s
  clustering:
    preset: "deep-investigation"
    k: 6
  scoring:
    critical_threshold: 85
  rules:
    enabled: true
    path: "rules/"
  output:
    mode: "clickhouse"
    clickhouse:
      url: "http://clickhouse:8123"
      database: "security"
      table: "clusters"
  result_store:
    enabled: true
    ttl: 48h
    keep_last: 10
  metrics:
    enabled: true
    addr: ":9204"
  logging:
    enabled: true
    level: "debug"
    console: true
`
	path := filepath.Join(t.TempDir(), "threatcluster.yml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	tc := cfg.ThreatCluster
	if tc.Input.Redis.Addr != "redis:6379" || tc.Input.Redis.Key != "audit_log_events" {
		t.Fatalf("unexpected redis input: %+v", tc.Input.Redis)
	}
	if tc.Input.Redis.BlockTimeout != 10*time.Second {
		t.Fatalf("unexpected block timeout: %v", tc.Input.Redis.BlockTimeout)
	}
	if tc.Pipeline.Workers != 8 || tc.Pipeline.FlushInterval != 15*time.Second {
		t.Fatalf("unexpected pipeline config: %+v", tc.Pipeline)
	}
	if tc.Clustering.Preset != "deep-investigation" || tc.Clustering.K != 6 {
		t.Fatalf("unexpected clustering config: %+v", tc.Clustering)
	}
	if tc.Scoring.CriticalThreshold != 85 {
		t.Fatalf("unexpected scoring override: %+v", tc.Scoring)
	}
	if !tc.Rules.Enabled || tc.Rules.Path != "rules/" {
		t.Fatalf("unexpected rules config: %+v", tc.Rules)
	}
	if tc.Output.Mode != "clickhouse" || tc.Output.ClickHouse.Table != "clusters" {
		t.Fatalf("unexpected output config: %+v", tc.Output)
	}
	if tc.ResultStore.TTL != 48*time.Hour || tc.ResultStore.KeepLast != 10 {
		t.Fatalf("unexpected result store config: %+v", tc.ResultStore)
	}
	if tc.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", tc.Logging)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
