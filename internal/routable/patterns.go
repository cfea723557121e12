package routable

import (
	"regexp"
	"strings"

	"github.com/routable/routable-lint/internal/token"
)

const renameFieldCall = "migrations.RenameField"

var (
	singleLineSave    = regexp.MustCompile(`^.+(\.save\(.*)`)
	featureFlagCreate = regexp.MustCompile(`^.*?(FeatureFlag\.objects\..*create)`)
)

// saveAllowedComments mark .save() calls that are known to be safe.
var saveAllowedComments = []string{
	"# TODO: needs fix",
	"# file save",
	"# form save",
	"# ledger save",
	"# multi-line with update_fields",
	"# new model save",
	"# not a model",
	"# save extension",
	"# serializer save",
}

var featureFlagAllowedComments = []string{
	"# valid for legacy cross-border work",
	"# valid for management command",
}

// scanLines calls match with the physical line of each token and reports the
// first token of every line it accepts. A line is reported at most once.
func scanLines(tokens []token.Token, code Code, match func(line string) bool) []Finding {
	var findings []Finding
	reported := make(map[int]bool)

	for _, t := range tokens {
		if reported[t.Start.Line] {
			continue
		}
		if match(t.Line) {
			reported[t.Start.Line] = true
			findings = append(findings, newFinding(t.Start, code))
		}
	}
	return findings
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// renameMigrations reports migrations that rename fields.
type renameMigrations struct{}

func (renameMigrations) Name() string { return "rename-migrations" }

func (renameMigrations) Scan(tokens []token.Token) []Finding {
	return scanLines(tokens, ROU109, func(line string) bool {
		return strings.Contains(line, renameFieldCall)
	})
}

// saveWithoutUpdateFields reports single-line .save() calls that do not pass
// update_fields.
type saveWithoutUpdateFields struct{}

func (saveWithoutUpdateFields) Name() string { return "save-update-fields" }

func (saveWithoutUpdateFields) Scan(tokens []token.Token) []Finding {
	return scanLines(tokens, ROU110, func(line string) bool {
		return singleLineSave.MatchString(line) &&
			!strings.Contains(line, "update_fields") &&
			!containsAny(line, saveAllowedComments)
	})
}

// featureFlagCreation reports FeatureFlag rows created from code.
type featureFlagCreation struct{}

func (featureFlagCreation) Name() string { return "feature-flag-creation" }

func (featureFlagCreation) Scan(tokens []token.Token) []Finding {
	return scanLines(tokens, ROU111, func(line string) bool {
		return featureFlagCreate.MatchString(line) && !containsAny(line, featureFlagAllowedComments)
	})
}
