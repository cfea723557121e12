package routable

import "github.com/routable/routable-lint/internal/token"

const taskDecorator = "shared_task"

// taskSignatures checks functions decorated with @shared_task: they must
// accept *args and **kwargs and must not take a priority parameter.
type taskSignatures struct{}

func (taskSignatures) Name() string { return "task-signatures" }

// taskScan is the state of one pass. Star positions are token indexes and
// survive the reset at each closing colon.
type taskScan struct {
	decorator    bool
	inTask       bool
	argsFound    bool
	kwargsFound  bool
	lastStar     int
	lastStarStar int
	depth        int
}

func (taskSignatures) Scan(tokens []token.Token) []Finding {
	var findings []Finding
	s := taskScan{lastStar: -1, lastStarStar: -1}

	for i, t := range tokens {
		if t.Kind == token.Op {
			switch t.Text {
			case "(", "[", "{":
				s.depth++
			case ")", "]", "}":
				s.depth--
			}
		}

		switch {
		case t.Is(token.Op, "@"):
			s.decorator = true
		case s.decorator && t.Is(token.Name, taskDecorator):
			s.inTask = true

		case s.inTask && t.Is(token.Op, "*"):
			s.lastStar = i
		case s.inTask && t.Is(token.Op, "**"):
			s.lastStarStar = i

		case s.inTask && t.Is(token.Name, "args") && s.lastStar == i-1:
			s.argsFound = true
		case s.inTask && t.Is(token.Name, "kwargs") && s.lastStarStar == i-1:
			s.kwargsFound = true

		case s.inTask && t.Is(token.Name, "priority"):
			findings = append(findings, newFinding(t.Start, ROU113))

		// Colons inside brackets belong to annotations, lambdas or dict
		// displays, not to the end of the header.
		case t.Is(token.Op, ":") && s.depth == 0:
			if s.inTask && (!s.argsFound || !s.kwargsFound) {
				findings = append(findings, newFinding(t.Start, ROU112))
			}
			s.decorator = false
			s.inTask = false
			s.argsFound = false
			s.kwargsFound = false
		}
	}
	return findings
}
