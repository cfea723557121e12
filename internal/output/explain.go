package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"

	"github.com/routable/routable-lint/internal/rules"
)

// RuleMarkdown documents one rule as Markdown.
func RuleMarkdown(r rules.Rule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n\n", r.ID, r.Name)
	fmt.Fprintf(&b, "**%s** · %s · level `%s`\n\n", r.Message, r.Category, r.Level)
	if r.Explanation != "" {
		b.WriteString(strings.TrimSpace(r.Explanation))
		b.WriteString("\n\n")
	}
	if r.Bad != "" {
		b.WriteString("## Bad\n\n```python\n")
		b.WriteString(strings.TrimRight(r.Bad, "\n"))
		b.WriteString("\n```\n\n")
	}
	if r.Good != "" {
		b.WriteString("## Good\n\n```python\n")
		b.WriteString(strings.TrimRight(r.Good, "\n"))
		b.WriteString("\n```\n\n")
	}
	if r.Remediation != "" {
		fmt.Fprintf(&b, "## Fix\n\n%s\n\n", r.Remediation)
	}
	if len(r.References) > 0 {
		b.WriteString("## References\n\n")
		for _, ref := range r.References {
			fmt.Fprintf(&b, "- %s\n", ref)
		}
	}
	return b.String()
}

// RenderMarkdown renders md for a terminal of the given width. Without
// color it uses glamour's plain style.
func RenderMarkdown(md string, width int, color bool) (string, error) {
	style := glamour.WithStandardStyle(styles.NoTTYStyle)
	if color {
		style = glamour.WithAutoStyle()
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
