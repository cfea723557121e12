// Package lint runs the routable checks over a set of input files, in
// parallel, consulting the findings cache and recording metrics and spans.
package lint

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/routable/routable-lint/internal/cache"
	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/routable"
	"github.com/routable/routable-lint/internal/rules"
	"github.com/routable/routable-lint/internal/sarif"
)

var tracer = otel.Tracer("github.com/routable/routable-lint/internal/lint")

// FileResult is the outcome of checking one artifact. SourceError is set
// when the file could not be tokenized or parsed; SourceLine is zero when the
// position is unknown.
type FileResult struct {
	Artifact     input.Artifact
	Findings     []routable.Finding
	SourceError  string
	SourceLine   int
	SourceColumn int
	Cached       bool
}

// Report holds the results of a run in input order.
type Report struct {
	Files    []FileResult
	Duration time.Duration
}

type Runner struct {
	cache    cache.CacheManager
	recorder *metrics.Recorder
	jobs     int
	logger   *slog.Logger
}

type Option func(*Runner)

// WithCache enables result caching. A nil cache disables it.
func WithCache(c cache.CacheManager) Option {
	return func(r *Runner) { r.cache = c }
}

func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithJobs bounds the number of files checked concurrently. Zero or less
// means GOMAXPROCS.
func WithJobs(n int) Option {
	return func(r *Runner) { r.jobs = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		recorder: metrics.NoOpRecorder(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.jobs <= 0 {
		r.jobs = runtime.GOMAXPROCS(0)
	}
	return r
}

// Recorder returns the runner's metrics recorder.
func (r *Runner) Recorder() *metrics.Recorder {
	return r.recorder
}

// Run checks every artifact. Source errors are part of the report; only
// cancellation and unexpected failures abort the run.
func (r *Runner) Run(ctx context.Context, artifacts []input.Artifact) (*Report, error) {
	ctx, span := tracer.Start(ctx, "lint run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("routable.files", len(artifacts)),
		attribute.Int("routable.jobs", r.jobs),
	)

	start := time.Now()
	results := make([]FileResult, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.jobs)
	for i, a := range artifacts {
		fb := r.recorder.StartFile(a.Path).WithContent(a.Content)
		g.Go(func() error {
			res, err := r.checkOne(gctx, a, fb)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report := &Report{Files: results, Duration: time.Since(start)}
	span.SetAttributes(attribute.Int("routable.findings", report.FindingCount()))
	return report, nil
}

func (r *Runner) checkOne(ctx context.Context, a input.Artifact, fb *metrics.FileBuilder) (FileResult, error) {
	ctx, span := tracer.Start(ctx, "check file")
	defer span.End()
	span.SetAttributes(
		attribute.String("routable.file.path", a.Path),
		attribute.Int("routable.file.size", len(a.Content)),
	)

	key := cache.NewKey(a.Path, a.Content)
	if r.cache == nil {
		fb.WithCacheResult(metrics.CacheBypass, "")
	} else {
		entry, err := r.cache.Get(ctx, key)
		switch {
		case err == nil:
			fb.WithCacheResult(metrics.CacheHit, key.Hash()).MarkStarted()
			res := fromEntry(a, entry)
			if res.SourceError != "" {
				fb.CompleteWithSourceError(ctx)
			} else {
				fb.Complete(ctx, res.Findings)
			}
			span.SetAttributes(attribute.Bool("routable.cache.hit", true))
			return res, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			if ctx.Err() != nil {
				return FileResult{}, ctx.Err()
			}
			r.logger.Warn("cache lookup failed", "path", a.Path, "error", err)
		}
		fb.WithCacheResult(metrics.CacheMiss, key.Hash())
	}

	fb.MarkStarted()
	findings, err := routable.Check(ctx, a.Path, a.Content)
	res := FileResult{Artifact: a, Findings: findings}
	if err != nil {
		if !routable.IsSourceError(err) {
			fb.CompleteWithError(ctx, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return FileResult{}, err
		}
		res.SourceError = sourceMessage(err)
		if pos, ok := routable.SourceErrorPos(err); ok {
			res.SourceLine, res.SourceColumn = pos.Line, pos.Column
		}
		r.logger.Info("file could not be analyzed", "path", a.Path, "error", res.SourceError)
		fb.CompleteWithSourceError(ctx)
	} else {
		fb.Complete(ctx, findings)
	}

	if r.cache != nil {
		entry := &cache.CacheEntry{
			Key:          key,
			Findings:     res.Findings,
			SourceError:  res.SourceError,
			SourceLine:   res.SourceLine,
			SourceColumn: res.SourceColumn,
			Timestamp:    time.Now().Unix(),
		}
		if err := r.cache.Put(ctx, entry); err != nil {
			r.logger.Warn("cache store failed", "path", a.Path, "error", err)
		}
	}
	return res, nil
}

func fromEntry(a input.Artifact, e *cache.CacheEntry) FileResult {
	return FileResult{
		Artifact:     a,
		Findings:     e.Findings,
		SourceError:  e.SourceError,
		SourceLine:   e.SourceLine,
		SourceColumn: e.SourceColumn,
		Cached:       true,
	}
}

// sourceMessage drops the "parsing <file>: " prefix, since results already
// carry the path.
func sourceMessage(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}

// InScope returns the findings of f that fall on lines the artifact covers.
func (f FileResult) InScope() []routable.Finding {
	if f.Artifact.Changed == nil {
		return f.Findings
	}
	var out []routable.Finding
	for _, finding := range f.Findings {
		if f.Artifact.InScope(finding.Line) {
			out = append(out, finding)
		}
	}
	return out
}

// FindingCount counts in-scope findings and source errors.
func (r *Report) FindingCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.InScope())
		if f.SourceError != "" {
			n++
		}
	}
	return n
}

// SARIF assembles the report into a SARIF log. Source errors are always
// reported; findings are limited to in-scope lines.
func (r *Report) SARIF(catalogue []rules.Rule, scope input.Kind) *sarif.Log {
	a := sarif.NewAssembler().
		WithRules(catalogue).
		WithInputScope(scope.String())
	for _, f := range r.Files {
		if f.SourceError != "" {
			a.AddSourceError(f.Artifact.Path, f.SourceError, f.SourceLine, f.SourceColumn)
			continue
		}
		a.AddFindings(f.Artifact.Path, f.InScope())
	}
	return a.WithProperty("routable/durationMs", r.Duration.Milliseconds()).Build()
}

// Sources maps result URIs to file contents.
func (r *Report) Sources() map[string][]byte {
	m := make(map[string][]byte, len(r.Files))
	for _, f := range r.Files {
		m[filepath.ToSlash(f.Artifact.Path)] = f.Artifact.Content
	}
	return m
}
