package output

import (
	"encoding/json"
	"fmt"

	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/store"
)

// JSONFormatter renders the verdict and a flat list of findings.
type JSONFormatter struct{}

type jsonFinding struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type jsonOutput struct {
	Verdict  *store.Verdict          `json:"verdict"`
	Findings []jsonFinding           `json:"findings"`
	Stats    *metrics.AggregateStats `json:"stats,omitempty"`
}

// Format serializes the output as pretty-printed JSON with a trailing newline.
// Columns are 1-based.
func (f *JSONFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil || result.Verdict == nil {
		return nil, fmt.Errorf("json formatter: verdict is required")
	}

	out := jsonOutput{
		Verdict:  result.Verdict,
		Findings: []jsonFinding{},
		Stats:    result.Stats,
	}
	for _, r := range results(result) {
		region := r.Region()
		out.Findings = append(out.Findings, jsonFinding{
			Path:    r.URI(),
			Line:    region.StartLine,
			Column:  region.StartColumn,
			Code:    r.RuleID,
			Level:   r.Level,
			Message: r.Message.Text,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json formatter: %w", err)
	}
	return append(data, '\n'), nil
}
