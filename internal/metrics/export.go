package metrics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

// Exporter handles exporting metrics to various formats
type Exporter struct {
	collector *Collector
}

// NewExporter creates a new metrics exporter
func NewExporter(collector *Collector) *Exporter {
	return &Exporter{collector: collector}
}

// ExportJSON writes stats and recent events to a JSON file
func (e *Exporter) ExportJSON(path string) error {
	report := struct {
		GeneratedAt time.Time      `json:"generated_at"`
		Stats       AggregateStats `json:"stats"`
		Events      []FileEvent    `json:"events"`
	}{
		GeneratedAt: time.Now(),
		Stats:       e.collector.GetStats(),
		Events:      e.collector.GetRecentEvents(1000),
	}
	return writeJSON(path, report)
}

// ExportStatsJSON writes only aggregate stats to a JSON file
func (e *Exporter) ExportStatsJSON(path string) error {
	return writeJSON(path, e.collector.GetStats())
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// WriteReport writes a human-readable report to the given writer
func (e *Exporter) WriteReport(w io.Writer) error {
	stats := e.collector.GetStats()

	fmt.Fprintf(w, "routable-lint Check Metrics\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Window: %s to %s\n\n",
		stats.WindowStart.Format(time.RFC3339),
		stats.WindowEnd.Format(time.RFC3339))

	fmt.Fprintf(w, "=== Summary ===\n")
	fmt.Fprintf(w, "Files Checked:   %d\n", stats.TotalFiles)
	fmt.Fprintf(w, "Source Errors:   %d\n", stats.TotalSourceErrors)
	fmt.Fprintf(w, "Failures:        %d (%.1f%%)\n",
		stats.TotalErrors,
		safePercent(float64(stats.TotalErrors), float64(stats.TotalFiles)))
	fmt.Fprintf(w, "Total Findings:  %d\n", stats.TotalFindings)
	fmt.Fprintf(w, "Findings/File:   %.2f\n\n", stats.FindingsPerFile)

	fmt.Fprintf(w, "=== Latency ===\n")
	fmt.Fprintf(w, "Average:  %.0fms\n", stats.AvgCheckDurationMs)
	fmt.Fprintf(w, "P50:      %.0fms\n", stats.P50CheckDurationMs)
	fmt.Fprintf(w, "P95:      %.0fms\n", stats.P95CheckDurationMs)
	fmt.Fprintf(w, "P99:      %.0fms\n", stats.P99CheckDurationMs)
	fmt.Fprintf(w, "Max:      %.0fms\n", stats.MaxCheckDurationMs)
	fmt.Fprintf(w, "Avg Queue: %.0fms\n", stats.AvgQueueDurationMs)
	fmt.Fprintf(w, "Avg Total: %.0fms\n\n", stats.AvgTotalDurationMs)

	fmt.Fprintf(w, "=== Cache ===\n")
	fmt.Fprintf(w, "Hits:     %d\n", stats.CacheHits)
	fmt.Fprintf(w, "Misses:   %d\n", stats.CacheMisses)
	fmt.Fprintf(w, "Stale:    %d\n", stats.CacheStale)
	fmt.Fprintf(w, "Hit Rate: %.1f%%\n\n", stats.CacheHitRate*100)

	fmt.Fprintf(w, "=== Throughput ===\n")
	fmt.Fprintf(w, "Files/min: %.2f\n", stats.FilesPerMinute)

	if len(stats.ByCode) > 0 {
		fmt.Fprintf(w, "\n=== By Code ===\n")
		codes := make([]string, 0, len(stats.ByCode))
		for code := range stats.ByCode {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "%s: %d\n", code, stats.ByCode[code])
		}
	}

	return nil
}

// WriteCSV writes events in CSV format for external analysis
func (e *Exporter) WriteCSV(w io.Writer) error {
	events := e.collector.GetRecentEvents(e.collector.maxEvents)

	cw := csv.NewWriter(w)
	header := []string{
		"id", "timestamp", "file_path", "file_size", "line_count",
		"queue_duration_ms", "check_duration_ms", "total_duration_ms",
		"finding_count", "source_error", "cache_result", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, ev := range events {
		record := []string{
			ev.ID,
			ev.Timestamp.Format(time.RFC3339),
			ev.FilePath,
			strconv.Itoa(ev.FileSize),
			strconv.Itoa(ev.LineCount),
			strconv.FormatInt(ev.QueueDuration.Milliseconds(), 10),
			strconv.FormatInt(ev.CheckDuration.Milliseconds(), 10),
			strconv.FormatInt(ev.TotalDuration.Milliseconds(), 10),
			strconv.Itoa(ev.FindingCount),
			strconv.FormatBool(ev.SourceError),
			string(ev.CacheResult),
			ev.Error,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func safePercent(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return (numerator / denominator) * 100
}
