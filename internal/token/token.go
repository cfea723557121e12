// Package token defines the lexical tokens of a Python source file as the
// rule engine consumes them.
package token

import "fmt"

// Kind is the closed set of token types produced by the tokenizer.
type Kind uint8

const (
	EndMarker Kind = iota
	Name
	Number
	String
	Op
	Comment
	Newline
	NL
	Indent
	Dedent
	ErrorToken
)

var kindNames = [...]string{
	EndMarker:  "ENDMARKER",
	Name:       "NAME",
	Number:     "NUMBER",
	String:     "STRING",
	Op:         "OP",
	Comment:    "COMMENT",
	Newline:    "NEWLINE",
	NL:         "NL",
	Indent:     "INDENT",
	Dedent:     "DEDENT",
	ErrorToken: "ERRORTOKEN",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsWhitespace reports whether k only carries line structure: NEWLINE, NL,
// INDENT or DEDENT.
func (k Kind) IsWhitespace() bool {
	switch k {
	case Newline, NL, Indent, Dedent:
		return true
	}
	return false
}

// Position is a location in source. Line is 1-based, Column is a 0-based
// byte offset into the line, the unit syntax nodes use. CPython's tokenize
// counts code points instead, so columns differ after non-ASCII text.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical token. Line holds the complete physical line the
// token starts on; for strings spanning several lines it holds all of them.
type Token struct {
	Kind  Kind
	Text  string
	Start Position
	End   Position
	Line  string
}

// Is reports whether t has kind k and literal text s.
func (t Token) Is(k Kind, s string) bool {
	return t.Kind == k && t.Text == s
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q %s-%s", t.Kind, t.Text, t.Start, t.End)
}
