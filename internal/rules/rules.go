// Package rules holds the documentation and reporting level of each rule
// code. Which detectors run is fixed; this catalogue only describes them.
package rules

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/routable/routable-lint/internal/routable"
)

type RuleCategory string

const (
	CategoryDocstrings RuleCategory = "docstrings"
	CategoryImports    RuleCategory = "imports"
	CategoryOrdering   RuleCategory = "ordering"
	CategoryFormatting RuleCategory = "formatting"
	CategoryDjango     RuleCategory = "django"
	CategoryCelery     RuleCategory = "celery"
)

// Detector names the component that reports a rule.
type Detector string

const (
	DetectorTree   Detector = "tree"
	DetectorTokens Detector = "tokens"
)

var validLevels = map[string]bool{"error": true, "warning": true, "note": true}

type Rule struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Category    RuleCategory `yaml:"category" json:"category"`
	Detector    Detector     `yaml:"detector" json:"detector"`
	Level       string       `yaml:"level" json:"level"`
	Message     string       `yaml:"message" json:"message"`
	Explanation string       `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	Remediation string       `yaml:"remediation,omitempty" json:"remediation,omitempty"`
	Bad         string       `yaml:"bad,omitempty" json:"bad,omitempty"`
	Good        string       `yaml:"good,omitempty" json:"good,omitempty"`
	References  []string     `yaml:"references,omitempty" json:"references,omitempty"`
}

type RuleFile struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

func ParseRuleFile(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}

	seen := make(map[string]bool)
	for i := range rf.Rules {
		r := &rf.Rules[i]
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("rule %q (index %d): %w", r.ID, i, err)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate rule ID %q", r.ID)
		}
		seen[r.ID] = true
	}

	return &rf, nil
}

// validateRule checks r against the engine's code table. A rule file may
// document and re-level codes but cannot introduce new ones.
func validateRule(r *Rule) error {
	if r.ID == "" {
		return fmt.Errorf("missing required field: id")
	}
	known, ok := routable.Lookup(routable.Code(r.ID))
	if !ok {
		return fmt.Errorf("unknown rule code %q", r.ID)
	}
	if r.Level == "" {
		return fmt.Errorf("missing required field: level")
	}
	if !validLevels[r.Level] {
		return fmt.Errorf("level must be one of error, warning, note; got %q", r.Level)
	}
	if r.Message == "" {
		r.Message = known.Message
	} else if r.Message != known.Message {
		return fmt.Errorf("message %q does not match the engine message %q", r.Message, known.Message)
	}
	if r.Detector != "" && r.Detector != DetectorTree && r.Detector != DetectorTokens {
		return fmt.Errorf("detector must be tree or tokens, got %q", r.Detector)
	}
	return nil
}

func ByCategory(rules []Rule, category RuleCategory) []Rule {
	var filtered []Rule
	for _, r := range rules {
		if r.Category == category {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func ByDetector(rules []Rule, detector Detector) []Rule {
	var filtered []Rule
	for _, r := range rules {
		if r.Detector == detector {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Index maps rules by ID.
func Index(rules []Rule) map[string]Rule {
	return indexByID(rules)
}

// Sorted returns rules ordered by ID.
func Sorted(rules []Rule) []Rule {
	out := append([]Rule(nil), rules...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
