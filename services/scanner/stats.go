package scanner

import (
	"sync"
	"time"
)

// ExecutionStats tracks scan outcomes for one category.
// TotalRuns == SuccessfulRuns + FailedRuns holds after every update.
type ExecutionStats struct {
	TotalRuns      int           `json:"total_runs"`
	SuccessfulRuns int           `json:"successful_runs"`
	FailedRuns     int           `json:"failed_runs"`
	AvgDuration    time.Duration `json:"avg_duration"`
	LastRunAt      time.Time     `json:"last_run_at"`
	LastError      string        `json:"last_error,omitempty"`
}

// StatsTracker holds per-category execution statistics. Entries are
// created lazily on first execution and mutated only by the coordinator's
// single aggregation step per scan.
type StatsTracker struct {
	mu         sync.Mutex
	byCategory map[Category]*ExecutionStats
}

// NewStatsTracker creates an empty tracker.
func NewStatsTracker() *StatsTracker {
	return &StatsTracker{byCategory: make(map[Category]*ExecutionStats)}
}

// Record registers one run for the category. A non-nil err counts the run
// as failed and keeps its message as the last error.
func (t *StatsTracker) Record(category Category, duration time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byCategory[category]
	if !ok {
		s = &ExecutionStats{}
		t.byCategory[category] = s
	}

	s.TotalRuns++
	if err != nil {
		s.FailedRuns++
		s.LastError = err.Error()
	} else {
		s.SuccessfulRuns++
		s.LastError = ""
	}

	// Incremental running mean; no history is kept.
	n := int64(s.TotalRuns)
	s.AvgDuration = time.Duration((int64(s.AvgDuration)*(n-1) + int64(duration)) / n)
	s.LastRunAt = time.Now()
}

// Snapshot returns a copy of all per-category stats.
func (t *StatsTracker) Snapshot() map[Category]ExecutionStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[Category]ExecutionStats, len(t.byCategory))
	for c, s := range t.byCategory {
		out[c] = *s
	}
	return out
}
