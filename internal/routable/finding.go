package routable

import (
	"fmt"

	"github.com/routable/routable-lint/internal/token"
)

// Finding is one reported violation. Line is 1-based and Column is a 0-based
// byte offset, matching token positions.
type Finding struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func newFinding(pos token.Position, code Code) Finding {
	return Finding{Line: pos.Line, Column: pos.Column, Code: code, Message: code.Message()}
}

// Pos returns the finding's position.
func (f Finding) Pos() token.Position {
	return token.Position{Line: f.Line, Column: f.Column}
}

// Origin is the marker hosts use to tell this engine's findings from other
// rule packs'. It is the same for every finding.
func (Finding) Origin() string {
	return Origin
}

// Text renders the message the way hosts expect it: "<CODE> <description>".
func (f Finding) Text() string {
	return fmt.Sprintf("%s %s", f.Code, f.Message)
}

func (f Finding) String() string {
	return fmt.Sprintf("%d:%d: %s", f.Line, f.Column, f.Text())
}
