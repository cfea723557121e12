package routable

import (
	"strings"

	"github.com/routable/routable-lint/internal/token"
)

// multiLineStrings reports triple-quoted literals spanning several lines
// that are used as values. Statement-leading strings (docstrings and
// comment blocks) are exempt, as is the first token of the file.
type multiLineStrings struct{}

func (multiLineStrings) Name() string { return "multi-line-strings" }

func (multiLineStrings) Scan(tokens []token.Token) []Finding {
	var findings []Finding
	leading := false

	for i, t := range tokens {
		if t.Kind.IsWhitespace() {
			leading = true
			continue
		}

		if t.Kind == token.String &&
			hasTripleQuotePrefix(t.Text) &&
			hasTripleQuoteSuffix(t.Text) &&
			t.End.Line > t.Start.Line &&
			!leading &&
			i > 0 {
			findings = append(findings, newFinding(t.Start, ROU102))
		}
		leading = false
	}
	return findings
}

func hasTripleQuotePrefix(s string) bool {
	return strings.HasPrefix(s, `'''`) || strings.HasPrefix(s, `"""`)
}

func hasTripleQuoteSuffix(s string) bool {
	return strings.HasSuffix(s, `'''`) || strings.HasSuffix(s, `"""`)
}

// docstrings reports class and function docstrings written with triple
// single quotes, and comments standing where the docstring belongs.
type docstrings struct{}

func (docstrings) Name() string { return "docstrings" }

func (docstrings) Scan(tokens []token.Token) []Finding {
	var findings []Finding
	leading := false
	insideHeader := false
	depth := 0
	// Line of the colon closing the last class or def header; 0 until one
	// is seen.
	headerEnd := 0

	for _, t := range tokens {
		if t.Kind == token.Op {
			switch t.Text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			}
		}
		if t.Kind.IsWhitespace() {
			leading = true
			continue
		}
		line := t.Start.Line
		followsHeader := headerEnd > 0 && headerEnd+1 == line

		switch {
		case t.Kind == token.String && leading:
			if followsHeader && strings.HasPrefix(strings.TrimSpace(t.Line), `'''`) {
				findings = append(findings, newFinding(t.Start, ROU100))
			}
		case isClassOrFunc(t):
			insideHeader = true
		// Annotation colons sit inside the parameter brackets.
		case t.Kind == token.Op && insideHeader && t.Text == ":" && depth == 0:
			headerEnd = line
			insideHeader = false
		case t.Kind == token.Comment && followsHeader && leading:
			findings = append(findings, newFinding(t.Start, ROU100))
		}
		leading = false
	}
	return findings
}
