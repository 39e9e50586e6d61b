package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"meal-estimator/internal/metrics/metricsdb"
	"meal-estimator/internal/shared"
)

// ExecutionMetric records metadata for a single model call.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	queries *metricsdb.Queries
	now     func() time.Time
}

// NewStore initializes the Store with an existing database connection.
// The connection is owned by the caller.
func NewStore(db *sql.DB) *Store {
	return &Store{
		queries: metricsdb.New(db),
		now:     time.Now,
	}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	err := s.queries.InsertExecutionMetric(ctx, metricsdb.InsertExecutionMetricParams{
		AgentName:        m.AgentName,
		Model:            m.Model,
		PromptTokens:     int64(m.PromptTokens),
		CompletionTokens: int64(m.CompletionTokens),
		LatencyMs:        m.LatencyMS,
		Timestamp:        ts.UTC().Truncate(time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to record metric for %s: %w", m.AgentName, err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.AgentMeta. Calls that used
// no tokens, such as cache hits, are skipped.
func (s *Store) RecordMeta(ctx context.Context, meta shared.AgentMeta) error {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return nil
	}
	return s.Record(ctx, MapUsage(meta.AgentName, meta.Usage, meta.Latency))
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := s.now().AddDate(0, 0, -days).UTC().Truncate(time.Second)
	rows, err := s.queries.GetDailyUsage(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily usage: %w", err)
	}

	var results []DailyUsage
	for _, r := range rows {
		u := DailyUsage{
			TotalPrompt:     int(r.TotalPrompt),
			TotalCompletion: int(r.TotalCompletion),
			TotalExecution:  int(r.Executions),
		}
		switch day := r.Day.(type) {
		case string:
			u.Date = day
		case []byte:
			u.Date = string(day)
		default:
			u.Date = "Unknown"
		}
		results = append(results, u)
	}
	return results, nil
}

// Cleanup removes records older than the specified number of days and
// reports how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := s.now().AddDate(0, 0, -olderThanDays).UTC().Truncate(time.Second)
	n, err := s.queries.CleanupExecutionMetrics(ctx, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return n, nil
}

// MapUsage converts token usage into an ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
	}
}
