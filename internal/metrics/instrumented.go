package metrics

import (
	"context"

	"github.com/routable/routable-lint/internal/routable"
)

// Checker checks one source file.
type Checker interface {
	Check(ctx context.Context, filename string, src []byte) ([]routable.Finding, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, filename string, src []byte) ([]routable.Finding, error)

func (f CheckerFunc) Check(ctx context.Context, filename string, src []byte) ([]routable.Finding, error) {
	return f(ctx, filename, src)
}

// InstrumentedChecker wraps a Checker with metrics recording. Files that fail
// to tokenize or parse are recorded as source errors, not failures.
type InstrumentedChecker struct {
	checker  Checker
	recorder *Recorder
}

// NewInstrumentedChecker creates a new instrumented checker
func NewInstrumentedChecker(checker Checker, recorder *Recorder) *InstrumentedChecker {
	return &InstrumentedChecker{
		checker:  checker,
		recorder: recorder,
	}
}

// Check wraps the underlying checker with metrics
func (c *InstrumentedChecker) Check(ctx context.Context, filename string, src []byte) ([]routable.Finding, error) {
	builder := c.recorder.StartFile(filename).WithContent(src).MarkStarted()

	findings, err := c.checker.Check(ctx, filename, src)
	if err != nil {
		if routable.IsSourceError(err) {
			builder.CompleteWithSourceError(ctx)
		} else {
			builder.CompleteWithError(ctx, err)
		}
		return nil, err
	}

	builder.Complete(ctx, findings)
	return findings, nil
}

// GetRecorder returns the underlying recorder
func (c *InstrumentedChecker) GetRecorder() *Recorder {
	return c.recorder
}
