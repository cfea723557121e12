package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/routable/routable-lint/internal/sarif"
)

var (
	fileStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.Color("170"))

	positionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	ruleStyle = lipgloss.NewStyle().Bold(true)

	severityErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true)

	severityWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true)

	severityNoteStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	lineNumberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(6).
			Align(lipgloss.Right)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	rejectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// PrettyFormatter renders results grouped by file, with the offending source
// line under each finding when Sources has it.
type PrettyFormatter struct {
	Color bool
}

func (f *PrettyFormatter) render(s lipgloss.Style, text string) string {
	if !f.Color {
		return text
	}
	return s.Render(text)
}

func (f *PrettyFormatter) severity(level string) string {
	switch level {
	case "error":
		return f.render(severityErrorStyle, level)
	case "warning":
		return f.render(severityWarningStyle, level)
	default:
		return f.render(severityNoteStyle, level)
	}
}

func (f *PrettyFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil || result.Verdict == nil {
		return nil, fmt.Errorf("pretty formatter: verdict is required")
	}

	all := results(result)
	byFile := make(map[string][]sarif.Result)
	var files []string
	for _, r := range all {
		uri := r.URI()
		if _, ok := byFile[uri]; !ok {
			files = append(files, uri)
		}
		byFile[uri] = append(byFile[uri], r)
	}
	sort.Strings(files)

	var b strings.Builder
	for _, file := range files {
		b.WriteString(f.render(fileStyle, file))
		b.WriteString("\n")

		rs := byFile[file]
		sort.SliceStable(rs, func(i, j int) bool {
			ri, rj := rs[i].Region(), rs[j].Region()
			if ri.StartLine != rj.StartLine {
				return ri.StartLine < rj.StartLine
			}
			return ri.StartColumn < rj.StartColumn
		})

		lines := sourceLines(result.Sources[file])
		for _, r := range rs {
			region := r.Region()
			pos := fmt.Sprintf("%d:%d", region.StartLine, region.StartColumn)
			text := strings.TrimPrefix(r.Message.Text, r.RuleID+" ")
			fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
				f.render(positionStyle, fmt.Sprintf("%-7s", pos)),
				f.severity(r.Level),
				f.render(ruleStyle, r.RuleID),
				text)

			if region.StartLine > 0 && region.StartLine <= len(lines) {
				fmt.Fprintf(&b, "  %s │ %s\n",
					f.render(lineNumberStyle, fmt.Sprintf("%6d", region.StartLine)),
					f.highlight(lines[region.StartLine-1]))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(f.summary(all))
	b.WriteString("\n")

	if result.Stats != nil && result.Stats.TotalFiles > 0 {
		fmt.Fprintf(&b, "%s\n", f.render(positionStyle, fmt.Sprintf(
			"Checked %d files (%d cached) · avg %.1fms per file",
			result.Stats.TotalFiles, result.Stats.CacheHits, result.Stats.AvgCheckDurationMs)))
	}

	decision := strings.ToUpper(result.Verdict.Decision)
	if result.Verdict.Rejected() {
		decision = f.render(rejectStyle, decision)
	} else {
		decision = f.render(passStyle, decision)
	}
	fmt.Fprintf(&b, "Gate: %s\n", decision)

	return []byte(b.String()), nil
}

func (f *PrettyFormatter) summary(all []sarif.Result) string {
	if len(all) == 0 {
		return "No findings"
	}
	counts := sarif.CountByLevel(all)
	var parts []string
	for _, level := range []string{"error", "warning", "note"} {
		n := counts[level]
		if n == 0 {
			continue
		}
		word := level
		if n != 1 {
			word += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, word))
	}
	return fmt.Sprintf("%d findings: %s", len(all), strings.Join(parts, ", "))
}

func sourceLines(src []byte) []string {
	if len(src) == 0 {
		return nil
	}
	return strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
}

var pythonLexer = chroma.Coalesce(lexerFor("python"))

func lexerFor(name string) chroma.Lexer {
	if l := lexers.Get(name); l != nil {
		return l
	}
	return lexers.Fallback
}

// highlight colors one line of Python. Without color, or if the lexer fails,
// the line is returned unchanged.
func (f *PrettyFormatter) highlight(line string) string {
	if !f.Color {
		return line
	}
	iterator, err := pythonLexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	var buf bytes.Buffer
	if err := formatters.TTY256.Format(&buf, style, iterator); err != nil {
		return line
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
