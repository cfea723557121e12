package output

import (
	"io"
	"log/slog"
	"math"
)

// LogOptions selects the verbosity and encoding of diagnostic logs.
type LogOptions struct {
	Quiet   bool
	Verbose bool
	Debug   bool
	// JSON switches to slog's JSON handler, for CI log collectors.
	JSON bool
}

// Level maps the options to a slog level.
// Priority: quiet > debug > verbose > default (warn).
func (o LogOptions) Level() slog.Level {
	switch {
	case o.Quiet:
		return slog.Level(math.MaxInt)
	case o.Debug:
		return slog.LevelDebug
	case o.Verbose:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// SetupLogger creates a slog.Logger writing to w (typically os.Stderr).
// Quiet suppresses every message, errors included.
func SetupLogger(opts LogOptions, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level()}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
