package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/routable/routable-lint/internal/sarif"
)

// MarkdownFormatter renders analysis output as GitHub-Flavored Markdown
// suitable for PR comments: a summary table followed by findings grouped
// under a collapsible section per file.
type MarkdownFormatter struct{}

func severityEmoji(level string) string {
	switch level {
	case "error":
		return ":red_circle:"
	case "warning":
		return ":warning:"
	case "note":
		return ":information_source:"
	default:
		return ":grey_question:"
	}
}

func decisionBanner(decision string) string {
	switch decision {
	case "pass":
		return ":white_check_mark: Pass"
	case "reject":
		return ":x: Reject"
	default:
		return decision
	}
}

func (f *MarkdownFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("markdown formatter: result is required")
	}
	if result.Verdict == nil {
		return nil, fmt.Errorf("markdown formatter: verdict is required")
	}

	all := results(result)
	byFile := make(map[string][]sarif.Result)
	for _, r := range all {
		byFile[r.URI()] = append(byFile[r.URI()], r)
	}
	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	var b strings.Builder
	b.WriteString("## routable-lint Summary\n\n")
	fmt.Fprintf(&b, "**Decision:** %s | **Findings:** %d | **Files:** %d\n",
		decisionBanner(result.Verdict.Decision), len(all), len(files))

	if len(all) == 0 {
		b.WriteString("\nNo findings detected.\n")
	} else {
		counts := make(map[string]int)
		for _, r := range all {
			counts[r.RuleID]++
		}
		codes := make([]string, 0, len(counts))
		for code := range counts {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		b.WriteString("\n### Findings by Rule\n")
		b.WriteString("| Rule | Count |\n")
		b.WriteString("|------|-------|\n")
		for _, code := range codes {
			fmt.Fprintf(&b, "| %s | %d |\n", code, counts[code])
		}

		b.WriteString("\n### Findings\n\n")
		for _, file := range files {
			rs := byFile[file]
			fmt.Fprintf(&b, "<details>\n<summary><code>%s</code> (%d)</summary>\n\n", file, len(rs))
			for _, r := range rs {
				region := r.Region()
				loc := ""
				if region.StartLine > 0 {
					loc = fmt.Sprintf("L%d:%d ", region.StartLine, region.StartColumn)
				}
				fmt.Fprintf(&b, "- %s %s`%s` %s\n",
					severityEmoji(r.Level), loc, r.RuleID,
					strings.TrimPrefix(r.Message.Text, r.RuleID+" "))
			}
			b.WriteString("\n</details>\n\n")
		}
	}

	b.WriteString("---\n")
	b.WriteString("*Generated by [routable-lint](" + sarif.InformationURI + ")*\n")

	return []byte(b.String()), nil
}
