package sarif

import (
	"path/filepath"
	"slices"

	"github.com/routable/routable-lint/internal/routable"
	"github.com/routable/routable-lint/internal/rules"
)

const (
	ToolName       = "routable-lint"
	InformationURI = "https://github.com/routable/routable-lint"
)

// Assembler provides a builder pattern for constructing SARIF logs from
// per-file findings.
type Assembler struct {
	results    []Result
	rules      []ReportingDescriptor
	levels     map[string]string
	inputScope string
	properties map[string]interface{}
}

// NewAssembler creates a new Assembler with default values
func NewAssembler() *Assembler {
	return &Assembler{
		results:    []Result{},
		rules:      []ReportingDescriptor{},
		levels:     map[string]string{SourceErrorRuleID: "error"},
		properties: map[string]interface{}{},
	}
}

// WithRules adds a reporting descriptor per catalogue rule. Result levels
// come from the catalogue; codes without an entry are reported as warnings.
func (a *Assembler) WithRules(catalogue []rules.Rule) *Assembler {
	for _, r := range catalogue {
		a.rules = append(a.rules, Descriptor(r))
		a.levels[r.ID] = r.Level
	}
	return a
}

// AddFindings converts the findings for path into results.
func (a *Assembler) AddFindings(path string, findings []routable.Finding) *Assembler {
	uri := filepath.ToSlash(path)
	for _, f := range findings {
		a.results = append(a.results, Result{
			RuleID:  string(f.Code),
			Level:   a.level(string(f.Code)),
			Message: Message{Text: f.Text()},
			Locations: []Location{{
				PhysicalLocation: PhysicalLocation{
					ArtifactLocation: ArtifactLocation{URI: uri},
					Region:           Region{StartLine: f.Line, StartColumn: f.Column + 1},
				},
			}},
			Properties: map[string]interface{}{
				"routable/origin": f.Origin(),
			},
		})
	}
	return a
}

// AddSourceError records that path could not be analyzed. line and column
// follow Finding conventions; a zero line means the position is unknown.
func (a *Assembler) AddSourceError(path, message string, line, column int) *Assembler {
	region := Region{}
	if line > 0 {
		region = Region{StartLine: line, StartColumn: column + 1}
	}
	a.results = append(a.results, Result{
		RuleID:  SourceErrorRuleID,
		Level:   "error",
		Message: Message{Text: SourceErrorRuleID + " " + message},
		Locations: []Location{{
			PhysicalLocation: PhysicalLocation{
				ArtifactLocation: ArtifactLocation{URI: filepath.ToSlash(path)},
				Region:           region,
			},
		}},
	})
	return a
}

// AddResults adds already converted results
func (a *Assembler) AddResults(results []Result) *Assembler {
	a.results = append(a.results, results...)
	return a
}

// WithInputScope sets the input scope for the SARIF log
func (a *Assembler) WithInputScope(scope string) *Assembler {
	a.inputScope = scope
	return a
}

// WithProperty sets a run-level property
func (a *Assembler) WithProperty(key string, value interface{}) *Assembler {
	a.properties[key] = value
	return a
}

func (a *Assembler) level(id string) string {
	if lvl, ok := a.levels[id]; ok && lvl != "" {
		return lvl
	}
	return "warning"
}

// Build constructs the final SARIF log. Results are ordered by file and
// position; duplicates are kept.
func (a *Assembler) Build() *Log {
	log := NewLog(ToolName, routable.Version)
	log.Runs[0].Tool.Driver.InformationURI = InformationURI
	if len(a.rules) > 0 {
		log.Runs[0].Tool.Driver.Rules = append(slices.Clone(a.rules), sourceErrorDescriptor)
	}
	log.Runs[0].Results = sortResults(a.results)

	props := make(map[string]interface{}, len(a.properties)+1)
	for k, v := range a.properties {
		props[k] = v
	}
	if a.inputScope != "" {
		props["routable/inputScope"] = a.inputScope
	}
	if len(props) > 0 {
		log.Runs[0].Properties = props
	}

	return log
}
