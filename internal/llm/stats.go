package llm

import (
	"slices"
	"sync"
	"time"
)

type call struct {
	at         time.Time
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates the answer calls still inside the window.
type StatsSnapshot struct {
	Count     int     `json:"count"`
	Errors    int     `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
	P99Ms     float64 `json:"p99_ms"`
}

// LLMStats keeps a rolling window of answer-call latencies and failures.
type LLMStats struct {
	mu     sync.Mutex
	calls  []call
	maxAge time.Duration
}

func NewLLMStats(maxAge time.Duration) *LLMStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LLMStats{
		calls:  make([]call, 0, 256),
		maxAge: maxAge,
	}
}

// Record adds a successful call.
func (s *LLMStats) Record(durationMs int64) { s.add(durationMs, false) }

// RecordFailure adds a failed call. Its latency still counts.
func (s *LLMStats) RecordFailure(durationMs int64) { s.add(durationMs, true) }

func (s *LLMStats) add(durationMs int64, failed bool) {
	if s == nil {
		return
	}
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.calls = append(s.calls, call{at: now, durationMs: durationMs, failed: failed})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.calls) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.calls))
	var sum int64
	errs := 0
	for _, c := range s.calls {
		values = append(values, c.durationMs)
		sum += c.durationMs
		if c.failed {
			errs++
		}
	}
	slices.Sort(values)

	return StatsSnapshot{
		Count:     len(values),
		Errors:    errs,
		ErrorRate: float64(errs) / float64(len(values)),
		MinMs:     values[0],
		MaxMs:     values[len(values)-1],
		AvgMs:     float64(sum) / float64(len(values)),
		P50Ms:     percentile(values, 50),
		P95Ms:     percentile(values, 95),
		P99Ms:     percentile(values, 99),
	}
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.calls = slices.DeleteFunc(s.calls, func(c call) bool { return c.at.Before(cutoff) })
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*frac
}
