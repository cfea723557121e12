// Package output provides formatters for rendering routable-lint results
// in different output formats (text, JSON, SARIF, Markdown, pretty terminal).
package output

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/sarif"
	"github.com/routable/routable-lint/internal/store"
)

// Formatter renders an AnalysisOutput into a byte slice in a specific format.
type Formatter interface {
	Format(result *AnalysisOutput) ([]byte, error)
}

// AnalysisOutput holds the complete results of a check run.
type AnalysisOutput struct {
	Verdict  *store.Verdict
	SARIFLog *sarif.Log
	// Sources maps result URIs to file contents for code snippets. Optional.
	Sources map[string][]byte
	Stats   *metrics.AggregateStats // optional, nil if not collected
}

// ResolveFormat determines the output format to use. An empty or "auto"
// value yields "pretty" for TTY output and "text" otherwise.
func ResolveFormat(value string, stdoutIsTTY bool) string {
	if value != "" && value != "auto" {
		return value
	}
	if stdoutIsTTY {
		return "pretty"
	}
	return "text"
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewFormatter returns a Formatter for the given format name.
// Supported formats: "text", "json", "sarif", "markdown", "pretty".
// color only affects "pretty".
func NewFormatter(format string, color bool) (Formatter, error) {
	switch format {
	case "text":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "sarif":
		return &SARIFFormatter{}, nil
	case "markdown":
		return &MarkdownFormatter{}, nil
	case "pretty":
		return &PrettyFormatter{Color: color}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %q (supported: text, json, sarif, markdown, pretty)", format)
	}
}

func results(result *AnalysisOutput) []sarif.Result {
	if result == nil || result.SARIFLog == nil {
		return nil
	}
	return sarif.Results(result.SARIFLog)
}
