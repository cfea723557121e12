package routable

import "github.com/routable/routable-lint/internal/token"

// classAndFuncKeywords open a declaration whose body may carry a docstring.
var classAndFuncKeywords = []string{"class", "def"}

// ignorableComments are section banners and markers exempt from the
// blank-line rule.
var ignorableComments = []string{"# ==", "# --", "# 2020-04-06 - Needs review"}

// Detector is a single linear pass over a file's tokens. Scan owns all of
// its state; the same Detector may scan any number of files concurrently.
type Detector interface {
	// Name returns the unique identifier for this detector (e.g. "docstrings").
	Name() string
	Scan(tokens []token.Token) []Finding
}

// Detectors returns the token detectors in the order their findings are
// reported.
func Detectors() []Detector {
	return []Detector{
		blankLinesAfterComment{},
		docstrings{},
		multiLineStrings{},
		renameMigrations{},
		saveWithoutUpdateFields{},
		featureFlagCreation{},
		taskSignatures{},
	}
}

// Scanner runs every Detector over a token stream.
type Scanner struct {
	detectors []Detector
}

// NewScanner creates a Scanner with the default detectors.
func NewScanner() *Scanner {
	return &Scanner{detectors: Detectors()}
}

// Scan concatenates each detector's findings in detector order.
func (s *Scanner) Scan(tokens []token.Token) []Finding {
	var out []Finding
	for _, d := range s.detectors {
		out = append(out, d.Scan(tokens)...)
	}
	return out
}

func isClassOrFunc(t token.Token) bool {
	if t.Kind != token.Name {
		return false
	}
	for _, kw := range classAndFuncKeywords {
		if t.Text == kw {
			return true
		}
	}
	return false
}
