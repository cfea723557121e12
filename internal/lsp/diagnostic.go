package lsp

import (
	"strings"
	"unicode/utf16"

	"github.com/routable/routable-lint/internal/sarif"
)

// Source is the diagnostic source shown by editors.
const Source = "routable-lint"

type DiagnosticSeverity int

const (
	DiagnosticSeverityError       DiagnosticSeverity = 1
	DiagnosticSeverityWarning     DiagnosticSeverity = 2
	DiagnosticSeverityInformation DiagnosticSeverity = 3
	DiagnosticSeverityHint        DiagnosticSeverity = 4
)

// Position is zero-based; Character counts UTF-16 code units.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity"`
	Code     string             `json:"code,omitempty"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

func levelToSeverity(level string) DiagnosticSeverity {
	switch level {
	case "error":
		return DiagnosticSeverityError
	case "warning":
		return DiagnosticSeverityWarning
	default:
		return DiagnosticSeverityInformation
	}
}

// ToDiagnostic converts a SARIF result for a document with the given lines.
// The range runs from the finding's column to the end of its line. A result
// without a line is placed at the top of the document.
func ToDiagnostic(result sarif.Result, lines []string) Diagnostic {
	diag := Diagnostic{
		Severity: levelToSeverity(result.Level),
		Code:     result.RuleID,
		Source:   Source,
		Message:  strings.TrimPrefix(result.Message.Text, result.RuleID+" "),
	}

	region := result.Region()
	line := region.StartLine - 1
	if line < 0 {
		return diag
	}
	var text string
	if line < len(lines) {
		text = lines[line]
	}
	col := max(region.StartColumn-1, 0)
	if col > len(text) {
		col = len(text)
	}
	diag.Range = Range{
		Start: Position{Line: line, Character: utf16Len(text[:col])},
		End:   Position{Line: line, Character: utf16Len(text)},
	}
	return diag
}

// ToDiagnostics converts every result of one document.
func ToDiagnostics(results []sarif.Result, content string) []Diagnostic {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	diagnostics := make([]Diagnostic, 0, len(results))
	for _, r := range results {
		diagnostics = append(diagnostics, ToDiagnostic(r, lines))
	}
	return diagnostics
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += len(utf16.Encode([]rune{r}))
	}
	return n
}
