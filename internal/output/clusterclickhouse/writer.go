package clusterclickhouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threatcluster/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// clusterRow is the flat per-cluster row sent to ClickHouse.
type clusterRow struct {
	GeneratedAt time.Time `json:"generated_at"`
	ClusterID   int       `json:"cluster_id"`
	ThreatLevel string    `json:"threat_level"`
	AttackType  string    `json:"attack_type"`
	Confidence  float64   `json:"confidence"`
	Size        int       `json:"size"`
	TimeSpan    string    `json:"time_span"`
	Regions     string    `json:"regions"`
	UserTargets int       `json:"user_targets"`
	RiskFactors int       `json:"risk_factors"`
}

// Writer sends per-cluster rows to ClickHouse via HTTP JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "clusters"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	base := strings.TrimRight(cfg.URL, "/")
	endpoint := base + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// WriteResult sends one row per cluster in the result.
func (w *Writer) WriteResult(result *models.ClusteringResult) error {
	if result == nil || len(result.Clusters) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, c := range result.Clusters {
		row := clusterRow{
			GeneratedAt: result.GeneratedAt,
			ClusterID:   c.ID,
			ThreatLevel: c.ThreatLevel,
			AttackType:  c.AttackType,
			Confidence:  c.Confidence,
			Size:        c.Size,
			TimeSpan:    c.TimeSpan,
			Regions:     strings.Join(c.GeographicSpread, ","),
			UserTargets: len(c.UserTargets),
			RiskFactors: len(c.RiskFactors),
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to marshal cluster row: %w", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Close releases resources.
func (w *Writer) Close() error {
	return nil
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
