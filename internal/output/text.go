package output

import (
	"fmt"
	"strings"
)

// TextFormatter prints one "path:line:col: CODE message" line per result,
// the format editors and CI log parsers expect from Python linters.
type TextFormatter struct{}

func (f *TextFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil || result.SARIFLog == nil {
		return nil, fmt.Errorf("text formatter: SARIF log is required")
	}

	var b strings.Builder
	for _, r := range results(result) {
		region := r.Region()
		if region.StartLine == 0 {
			fmt.Fprintf(&b, "%s: %s\n", r.URI(), r.Message.Text)
			continue
		}
		col := region.StartColumn
		if col == 0 {
			col = 1
		}
		fmt.Fprintf(&b, "%s:%d:%d: %s\n", r.URI(), region.StartLine, col, r.Message.Text)
	}
	return []byte(b.String()), nil
}
