package sarif

import (
	"cmp"
	"slices"

	"github.com/routable/routable-lint/internal/rules"
)

// SourceErrorRuleID is reported for files that could not be tokenized or
// parsed.
const SourceErrorRuleID = "E999"

var sourceErrorDescriptor = ReportingDescriptor{
	ID:               SourceErrorRuleID,
	Name:             "source-error",
	ShortDescription: Message{Text: "File could not be tokenized or parsed"},
	DefaultConfig:    &ReportingConfiguration{Level: "error"},
}

// Descriptor converts a catalogue rule into a reporting descriptor.
func Descriptor(r rules.Rule) ReportingDescriptor {
	d := ReportingDescriptor{
		ID:               r.ID,
		Name:             r.Name,
		ShortDescription: Message{Text: r.Message},
		DefaultConfig:    &ReportingConfiguration{Level: r.Level},
	}
	if r.Explanation != "" {
		d.FullDescription = &Message{Text: r.Explanation}
	}
	if r.Remediation != "" {
		d.Help = &Message{Text: r.Remediation}
	}
	if len(r.References) > 0 {
		d.HelpURI = r.References[0]
	}
	return d
}

func sortResults(results []Result) []Result {
	out := slices.Clone(results)
	if out == nil {
		out = []Result{}
	}
	slices.SortStableFunc(out, func(a, b Result) int {
		ra, rb := a.Region(), b.Region()
		return cmp.Or(
			cmp.Compare(a.URI(), b.URI()),
			cmp.Compare(ra.StartLine, rb.StartLine),
			cmp.Compare(ra.StartColumn, rb.StartColumn),
			cmp.Compare(a.RuleID, b.RuleID),
		)
	})
	return out
}

// Results returns the results of every run in doc.
func Results(doc *Log) []Result {
	var out []Result
	for _, run := range doc.Runs {
		out = append(out, run.Results...)
	}
	return out
}

// CountByLevel tallies results per level.
func CountByLevel(results []Result) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Level]++
	}
	return counts
}
