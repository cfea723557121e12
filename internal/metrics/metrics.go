// Package metrics records per-file check statistics. Events are kept in an
// in-process Collector for reports and mirrored to OpenTelemetry instruments.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// CacheResult indicates whether a cache lookup was a hit or miss
type CacheResult string

const (
	CacheHit   CacheResult = "hit"
	CacheMiss  CacheResult = "miss"
	CacheStale CacheResult = "stale"
	// CacheBypass marks files checked with the cache switched off.
	CacheBypass CacheResult = "bypass"
)

// FileEvent captures metrics for checking a single file
type FileEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	FilePath  string `json:"file_path"`
	FileSize  int    `json:"file_size"` // bytes
	LineCount int    `json:"line_count"`

	QueueDuration time.Duration `json:"queue_duration"` // waiting for a worker
	CheckDuration time.Duration `json:"check_duration"` // tokenize, parse and detectors
	TotalDuration time.Duration `json:"total_duration"`

	FindingCount int            `json:"finding_count"`
	Codes        map[string]int `json:"codes,omitempty"`
	// SourceError is set when the file could not be tokenized or parsed.
	SourceError bool `json:"source_error,omitempty"`

	CacheResult CacheResult `json:"cache_result"`
	CacheKey    string      `json:"cache_key,omitempty"`

	Error string `json:"error,omitempty"`
}

// Timing tracks queue and check time for one file
type Timing struct {
	queuedAt    time.Time
	startedAt   time.Time
	completedAt time.Time
}

// NewTiming creates a new timing tracker, marking queue time as now
func NewTiming() *Timing {
	return &Timing{
		queuedAt: time.Now(),
	}
}

// Start marks the check as started (dequeued)
func (t *Timing) Start() {
	t.startedAt = time.Now()
}

// Complete marks the check as completed
func (t *Timing) Complete() {
	t.completedAt = time.Now()
}

// QueueDuration returns time spent in queue
func (t *Timing) QueueDuration() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return t.startedAt.Sub(t.queuedAt)
}

// CheckDuration returns time spent checking
func (t *Timing) CheckDuration() time.Duration {
	if t.completedAt.IsZero() || t.startedAt.IsZero() {
		return 0
	}
	return t.completedAt.Sub(t.startedAt)
}

// TotalDuration returns total end-to-end time
func (t *Timing) TotalDuration() time.Duration {
	if t.completedAt.IsZero() {
		return 0
	}
	return t.completedAt.Sub(t.queuedAt)
}

// AggregateStats holds computed aggregate statistics
type AggregateStats struct {
	TotalFiles        int64 `json:"total_files"`
	TotalErrors       int64 `json:"total_errors"`
	TotalSourceErrors int64 `json:"total_source_errors"`
	TotalFindings     int64 `json:"total_findings"`

	// Latency stats (in milliseconds for JSON readability)
	AvgCheckDurationMs float64 `json:"avg_check_duration_ms"`
	P50CheckDurationMs float64 `json:"p50_check_duration_ms"`
	P95CheckDurationMs float64 `json:"p95_check_duration_ms"`
	P99CheckDurationMs float64 `json:"p99_check_duration_ms"`
	MaxCheckDurationMs float64 `json:"max_check_duration_ms"`

	AvgQueueDurationMs float64 `json:"avg_queue_duration_ms"`
	AvgTotalDurationMs float64 `json:"avg_total_duration_ms"`

	CacheHits    int64   `json:"cache_hits"`
	CacheMisses  int64   `json:"cache_misses"`
	CacheStale   int64   `json:"cache_stale"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	FilesPerMinute  float64 `json:"files_per_minute"`
	FindingsPerFile float64 `json:"findings_per_file"`

	// Findings per rule code within the window
	ByCode map[string]int64 `json:"by_code"`

	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// atomicCounters holds atomic counters for real-time stats
type atomicCounters struct {
	totalFiles        atomic.Int64
	totalErrors       atomic.Int64
	totalSourceErrors atomic.Int64
	totalFindings     atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	cacheStale        atomic.Int64
}

// Collector collects and stores file events
type Collector struct {
	mu       sync.RWMutex
	events   []FileEvent
	counters atomicCounters

	maxEvents  int
	windowSize time.Duration

	startTime time.Time
}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithMaxEvents sets the maximum number of events to retain
func WithMaxEvents(n int) CollectorOption {
	return func(c *Collector) {
		c.maxEvents = n
	}
}

// WithWindowSize sets the time window for aggregate stats
func WithWindowSize(d time.Duration) CollectorOption {
	return func(c *Collector) {
		c.windowSize = d
	}
}

// NewCollector creates a new metrics collector
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		events:     make([]FileEvent, 0, 1000),
		maxEvents:  10000,
		windowSize: 1 * time.Hour,
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record adds a file event to the collector
func (c *Collector) Record(event FileEvent) {
	c.counters.totalFiles.Add(1)
	c.counters.totalFindings.Add(int64(event.FindingCount))

	if event.Error != "" {
		c.counters.totalErrors.Add(1)
	}
	if event.SourceError {
		c.counters.totalSourceErrors.Add(1)
	}

	switch event.CacheResult {
	case CacheHit:
		c.counters.cacheHits.Add(1)
	case CacheMiss:
		c.counters.cacheMisses.Add(1)
	case CacheStale:
		c.counters.cacheStale.Add(1)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEvents <= 0 {
		return
	}

	c.events = append(c.events, event)

	// Prune old events if needed
	if len(c.events) > c.maxEvents {
		// Remove oldest 10%
		pruneCount := max(c.maxEvents/10, 1)
		c.events = c.events[pruneCount:]
	}
}

// GetStats computes aggregate statistics from collected events
func (c *Collector) GetStats() AggregateStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	windowStart := now.Add(-c.windowSize)

	stats := AggregateStats{
		TotalFiles:        c.counters.totalFiles.Load(),
		TotalErrors:       c.counters.totalErrors.Load(),
		TotalSourceErrors: c.counters.totalSourceErrors.Load(),
		TotalFindings:     c.counters.totalFindings.Load(),
		CacheHits:         c.counters.cacheHits.Load(),
		CacheMisses:       c.counters.cacheMisses.Load(),
		CacheStale:        c.counters.cacheStale.Load(),
		ByCode:            make(map[string]int64),
		WindowStart:       windowStart,
		WindowEnd:         now,
	}

	totalCacheOps := stats.CacheHits + stats.CacheMisses + stats.CacheStale
	if totalCacheOps > 0 {
		stats.CacheHitRate = float64(stats.CacheHits) / float64(totalCacheOps)
	}

	if stats.TotalFiles > 0 {
		stats.FindingsPerFile = float64(stats.TotalFindings) / float64(stats.TotalFiles)
	}

	var windowEvents []FileEvent
	for _, e := range c.events {
		if e.Timestamp.After(windowStart) {
			windowEvents = append(windowEvents, e)
		}
	}

	if len(windowEvents) == 0 {
		return stats
	}

	durations := make([]float64, 0, len(windowEvents))
	var sumCheck, sumQueue, sumTotal float64
	for _, e := range windowEvents {
		ms := float64(e.CheckDuration.Milliseconds())
		durations = append(durations, ms)
		sumCheck += ms
		sumQueue += float64(e.QueueDuration.Milliseconds())
		sumTotal += float64(e.TotalDuration.Milliseconds())

		for code, n := range e.Codes {
			stats.ByCode[code] += int64(n)
		}
	}

	n := float64(len(windowEvents))
	stats.AvgCheckDurationMs = sumCheck / n
	stats.AvgQueueDurationMs = sumQueue / n
	stats.AvgTotalDurationMs = sumTotal / n

	slices.Sort(durations)
	stats.P50CheckDurationMs = percentile(durations, 0.50)
	stats.P95CheckDurationMs = percentile(durations, 0.95)
	stats.P99CheckDurationMs = percentile(durations, 0.99)
	stats.MaxCheckDurationMs = durations[len(durations)-1]

	elapsed := now.Sub(c.startTime).Minutes()
	if elapsed > 0 {
		stats.FilesPerMinute = float64(stats.TotalFiles) / elapsed
	}

	return stats
}

// GetRecentEvents returns the most recent n events
func (c *Collector) GetRecentEvents(n int) []FileEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n > len(c.events) {
		n = len(c.events)
	}
	if n <= 0 {
		return nil
	}

	result := make([]FileEvent, n)
	copy(result, c.events[len(c.events)-n:])
	return result
}

// Reset clears all collected metrics
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = c.events[:0]
	c.counters = atomicCounters{}
	c.startTime = time.Now()
}

// percentile returns the value at the given percentile (0.0-1.0)
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
