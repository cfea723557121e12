package routable

import (
	"strings"

	"github.com/routable/routable-lint/internal/token"
)

// blankLinesAfterComment reports three blank lines following a comment that
// is not a section banner, unless a class, def or decorator comes next after
// a dedent.
type blankLinesAfterComment struct{}

func (blankLinesAfterComment) Name() string { return "blank-lines-after-comment" }

// blankLineLatch holds the stages that must all pass for a finding.
type blankLineLatch struct {
	sectionComment  bool
	nl1, nl2, nl3   bool
	dedent          bool
	stmtOrDecorator bool
}

func newBlankLineLatch() blankLineLatch {
	return blankLineLatch{sectionComment: true, stmtOrDecorator: true}
}

func (l blankLineLatch) passed() bool {
	return !l.sectionComment && l.nl1 && l.nl2 && l.nl3 && l.dedent && !l.stmtOrDecorator
}

func isIgnorableComment(text string) bool {
	for _, prefix := range ignorableComments {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func (blankLinesAfterComment) Scan(tokens []token.Token) []Finding {
	var findings []Finding
	latch := newBlankLineLatch()

	for i, t := range tokens {
		reset := false
		pos := t.Start

		switch {
		case latch.dedent && latch.stmtOrDecorator && t.Kind == token.Dedent:
			// Stacked dedents before a declaration are skipped.
			continue

		case latch.dedent && !isClassOrFunc(t) && !t.Is(token.Op, "@"):
			latch.stmtOrDecorator = false

		case latch.nl3 && !latch.dedent:
			switch {
			case t.Kind == token.Dedent:
				latch.dedent = true
			case t.Kind == token.Comment && isIgnorableComment(t.Text):
				reset = true
			default:
				// Report where the last blank line was found.
				latch.dedent = true
				latch.stmtOrDecorator = false
				pos = tokens[i-1].Start
			}

		case latch.nl2 && !latch.nl3 && t.Kind == token.NL:
			latch.nl3 = true
		case latch.nl1 && !latch.nl2 && t.Kind == token.NL:
			latch.nl2 = true
		case !latch.sectionComment && !latch.nl1 && t.Kind == token.NL:
			latch.nl1 = true

		case latch.sectionComment && t.Kind == token.Comment && !isIgnorableComment(t.Text):
			latch.sectionComment = false

		default:
			reset = true
		}

		if latch.passed() {
			reset = true
			findings = append(findings, newFinding(pos, ROU104))
		}
		if reset {
			latch = newBlankLineLatch()
		}
	}
	return findings
}
