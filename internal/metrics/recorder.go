package metrics

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/routable/routable-lint/internal/routable"
)

const meterName = "github.com/routable/routable-lint/internal/metrics"

// instruments mirror collector events into the global MeterProvider. They are
// no-ops until telemetry.Init installs a real provider.
type instruments struct {
	files    metric.Int64Counter
	findings metric.Int64Counter
	cache    metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider) *instruments {
	meter := mp.Meter(meterName)
	// Instrument construction only fails on invalid names; the returned
	// instrument is usable either way.
	files, _ := meter.Int64Counter("routable.files.checked",
		metric.WithDescription("Python files checked"))
	findings, _ := meter.Int64Counter("routable.findings",
		metric.WithDescription("Findings reported, by rule code"))
	cache, _ := meter.Int64Counter("routable.cache.lookups",
		metric.WithDescription("Findings cache lookups, by result"))
	duration, _ := meter.Float64Histogram("routable.check.duration",
		metric.WithDescription("Time spent checking one file"),
		metric.WithUnit("ms"))
	return &instruments{files: files, findings: findings, cache: cache, duration: duration}
}

// Recorder provides a convenient API for recording file metrics
type Recorder struct {
	collector   *Collector
	instruments *instruments
}

// NewRecorder creates a recorder backed by collector and the global
// MeterProvider.
func NewRecorder(collector *Collector) *Recorder {
	return NewRecorderWithProvider(collector, otel.GetMeterProvider())
}

// NewRecorderWithProvider creates a recorder that reports to mp.
func NewRecorderWithProvider(collector *Collector, mp metric.MeterProvider) *Recorder {
	return &Recorder{
		collector:   collector,
		instruments: newInstruments(mp),
	}
}

// Collector returns the recorder's collector.
func (r *Recorder) Collector() *Collector {
	return r.collector
}

// FileBuilder helps build a FileEvent incrementally
type FileBuilder struct {
	recorder *Recorder
	event    FileEvent
	timing   *Timing
	mu       sync.Mutex
}

// StartFile begins recording a check of path
func (r *Recorder) StartFile(path string) *FileBuilder {
	return &FileBuilder{
		recorder: r,
		event: FileEvent{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			FilePath:  path,
		},
		timing: NewTiming(),
	}
}

// WithContent records the size of the file being checked
func (b *FileBuilder) WithContent(content []byte) *FileBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.event.FileSize = len(content)
	b.event.LineCount = bytes.Count(content, []byte("\n"))
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.event.LineCount++
	}
	return b
}

// WithCacheResult records a cache lookup result
func (b *FileBuilder) WithCacheResult(result CacheResult, key string) *FileBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.event.CacheResult = result
	b.event.CacheKey = key
	return b
}

// MarkStarted marks the check as started (dequeued)
func (b *FileBuilder) MarkStarted() *FileBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timing.Start()
	return b
}

// Complete finishes recording and submits the event
func (b *FileBuilder) Complete(ctx context.Context, findings []routable.Finding) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timing.Complete()

	b.event.FindingCount = len(findings)
	if len(findings) > 0 {
		b.event.Codes = make(map[string]int)
		for _, f := range findings {
			b.event.Codes[string(f.Code)]++
		}
	}
	b.finish(ctx)
}

// CompleteWithSourceError finishes recording a file that could not be
// tokenized or parsed.
func (b *FileBuilder) CompleteWithSourceError(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timing.Complete()
	b.event.SourceError = true
	b.finish(ctx)
}

// CompleteWithError finishes recording with an error
func (b *FileBuilder) CompleteWithError(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.timing.Complete()
	b.event.Error = err.Error()
	b.finish(ctx)
}

func (b *FileBuilder) finish(ctx context.Context) {
	b.event.QueueDuration = b.timing.QueueDuration()
	b.event.CheckDuration = b.timing.CheckDuration()
	b.event.TotalDuration = b.timing.TotalDuration()

	b.recorder.collector.Record(b.event)
	b.recorder.export(ctx, b.event)
}

func (r *Recorder) export(ctx context.Context, e FileEvent) {
	if r.instruments == nil {
		return
	}
	outcome := "ok"
	switch {
	case e.Error != "":
		outcome = "error"
	case e.SourceError:
		outcome = "source_error"
	}
	r.instruments.files.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	for code, n := range e.Codes {
		r.instruments.findings.Add(ctx, int64(n), metric.WithAttributes(attribute.String("code", code)))
	}
	if e.CacheResult != "" {
		r.instruments.cache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(e.CacheResult))))
	}
	r.instruments.duration.Record(ctx, float64(e.CheckDuration.Microseconds())/1000)
}

type contextKey string

const recorderContextKey contextKey = "metrics_recorder"

// WithRecorder adds a recorder to the context
func WithRecorder(ctx context.Context, recorder *Recorder) context.Context {
	return context.WithValue(ctx, recorderContextKey, recorder)
}

// RecorderFromContext retrieves a recorder from the context
func RecorderFromContext(ctx context.Context) *Recorder {
	if r, ok := ctx.Value(recorderContextKey).(*Recorder); ok {
		return r
	}
	return nil
}

// NoOpRecorder returns a recorder that discards all metrics
func NoOpRecorder() *Recorder {
	return &Recorder{
		collector: NewCollector(WithMaxEvents(0)),
	}
}
