// Package tokenize splits Python source into the token stream the rule
// engine scans. It follows the behavior of CPython's tokenize module:
// comment-only and blank lines yield COMMENT/NL without indentation
// changes, newlines inside brackets are NL, DEDENT tokens sit at the first
// token of the dedented line, and a missing trailing newline produces an
// empty NEWLINE before the closing DEDENTs and ENDMARKER.
package tokenize

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/routable/routable-lint/internal/token"
)

const tabSize = 8

var (
	ErrUnterminatedString = errors.New("unterminated string literal")
	ErrEOFInStatement     = errors.New("EOF in multi-line statement")
	ErrInconsistentDedent = errors.New("unindent does not match any outer indentation level")
)

// SyntaxError reports where tokenization stopped.
type SyntaxError struct {
	Pos token.Position
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Tokenize returns every token of src in order, ending with ENDMARKER. On
// error the tokens produced so far are returned alongside it.
func Tokenize(src string) ([]token.Token, error) {
	t := &tokenizer{
		lines:   splitLines(src),
		indents: []int{0},
	}
	err := t.run()
	return t.tokens, err
}

// openString is a string literal that continues past the end of its line.
type openString struct {
	start    token.Position
	text     string
	line     string
	quote    string
	needCont bool
}

type tokenizer struct {
	lines      []string
	tokens     []token.Token
	indents    []int
	parenDepth int
	continued  bool
	str        *openString
}

func splitLines(src string) []string {
	lines := strings.SplitAfter(src, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (t *tokenizer) emit(kind token.Kind, text string, start, end token.Position, line string) {
	t.tokens = append(t.tokens, token.Token{Kind: kind, Text: text, Start: start, End: end, Line: line})
}

func (t *tokenizer) run() error {
	lnum := 0
	lastLine := ""

lines:
	for _, line := range t.lines {
		lnum++
		pos, max := 0, len(line)

		switch {
		case t.str != nil:
			s := t.str
			if end, ok := scanStringEnd(line, 0, s.quote); ok {
				t.emit(token.String, s.text+line[:end], s.start, token.Position{Line: lnum, Column: end}, s.line+line)
				t.str = nil
				pos = end
			} else if s.needCont && !endsWithContinuation(line) {
				return &SyntaxError{Pos: s.start, Err: ErrUnterminatedString}
			} else {
				s.text += line
				s.line += line
				lastLine = line
				continue
			}

		case t.parenDepth == 0 && !t.continued:
			column := 0
		indent:
			for pos < max {
				switch line[pos] {
				case ' ':
					column++
				case '\t':
					column = (column/tabSize + 1) * tabSize
				case '\f':
					column = 0
				default:
					break indent
				}
				pos++
			}
			if pos == max {
				lastLine = line
				break lines
			}

			if c := line[pos]; c == '#' || c == '\r' || c == '\n' {
				if c == '#' {
					comment := strings.TrimRight(line[pos:], "\r\n")
					t.emit(token.Comment, comment, token.Position{Line: lnum, Column: pos}, token.Position{Line: lnum, Column: pos + len(comment)}, line)
					pos += len(comment)
				}
				t.emit(token.NL, line[pos:], token.Position{Line: lnum, Column: pos}, token.Position{Line: lnum, Column: len(line)}, line)
				lastLine = line
				continue
			}

			if column > t.indents[len(t.indents)-1] {
				t.indents = append(t.indents, column)
				t.emit(token.Indent, line[:pos], token.Position{Line: lnum}, token.Position{Line: lnum, Column: pos}, line)
			}
			for column < t.indents[len(t.indents)-1] {
				if !slices.Contains(t.indents, column) {
					return &SyntaxError{Pos: token.Position{Line: lnum, Column: pos}, Err: ErrInconsistentDedent}
				}
				t.indents = t.indents[:len(t.indents)-1]
				p := token.Position{Line: lnum, Column: pos}
				t.emit(token.Dedent, "", p, p, line)
			}

		default:
			t.continued = false
		}

		if err := t.scanLine(line, lnum, pos); err != nil {
			return err
		}
		lastLine = line
	}

	if t.str != nil {
		return &SyntaxError{Pos: t.str.start, Err: ErrUnterminatedString}
	}
	if t.parenDepth > 0 || t.continued {
		return &SyntaxError{Pos: token.Position{Line: lnum, Column: len(lastLine)}, Err: ErrEOFInStatement}
	}

	if lastLine != "" && !strings.HasSuffix(lastLine, "\n") && !strings.HasSuffix(lastLine, "\r") &&
		!strings.HasPrefix(strings.TrimSpace(lastLine), "#") {
		t.emit(token.Newline, "", token.Position{Line: lnum, Column: len(lastLine)}, token.Position{Line: lnum, Column: len(lastLine) + 1}, "")
	}
	end := token.Position{Line: lnum + 1}
	for range t.indents[1:] {
		t.emit(token.Dedent, "", end, end, "")
	}
	t.emit(token.EndMarker, "", end, end, "")
	return nil
}

// scanLine emits the tokens of line starting at byte offset pos.
func (t *tokenizer) scanLine(line string, lnum, pos int) error {
	max := len(line)
	at := func(col int) token.Position { return token.Position{Line: lnum, Column: col} }

	for pos < max {
		start := pos
		for start < max && (line[start] == ' ' || line[start] == '\t' || line[start] == '\f') {
			start++
		}
		if start == max {
			return nil
		}
		c := line[start]

		switch {
		case c == '#':
			comment := strings.TrimRight(line[start:], "\r\n")
			pos = start + len(comment)
			t.emit(token.Comment, comment, at(start), at(pos), line)

		case c == '\r' || c == '\n':
			text := line[start:]
			pos = max
			kind := token.Newline
			if t.parenDepth > 0 {
				kind = token.NL
			}
			t.emit(kind, text, at(start), at(pos), line)

		case c == '\\':
			if rest := line[start+1:]; rest == "\n" || rest == "\r\n" {
				t.continued = true
				return nil
			}
			pos = start + 1
			t.emit(token.ErrorToken, line[start:pos], at(start), at(pos), line)

		case isDigit(c) || (c == '.' && start+1 < max && isDigit(line[start+1])):
			pos = scanNumber(line, start)
			t.emit(token.Number, line[start:pos], at(start), at(pos), line)

		default:
			if q, ok := stringQuote(line, start); ok {
				end, done, err := t.scanString(line, lnum, start, q)
				if err != nil {
					return err
				}
				if !done {
					return nil
				}
				pos = end
				continue
			}

			r, size := utf8.DecodeRuneInString(line[start:])
			if isIdentStart(r) {
				pos = start + size
				for pos < max {
					r, size = utf8.DecodeRuneInString(line[pos:])
					if !isIdentPart(r) {
						break
					}
					pos += size
				}
				t.emit(token.Name, line[start:pos], at(start), at(pos), line)
				continue
			}

			if op := matchOperator(line[start:]); op != "" {
				switch op {
				case "(", "[", "{":
					t.parenDepth++
				case ")", "]", "}":
					t.parenDepth--
				}
				pos = start + len(op)
				t.emit(token.Op, op, at(start), at(pos), line)
				continue
			}

			pos = start + size
			t.emit(token.ErrorToken, line[start:pos], at(start), at(pos), line)
		}
	}
	return nil
}

// scanString handles a string literal whose opening quote sits at offset q
// (the prefix, if any, starts at start). done is false when the literal
// continues onto the next line.
func (t *tokenizer) scanString(line string, lnum, start, q int) (end int, done bool, err error) {
	quote := line[q : q+1]
	if strings.HasPrefix(line[q:], strings.Repeat(quote, 3)) {
		quote = strings.Repeat(quote, 3)
	}
	startPos := token.Position{Line: lnum, Column: start}

	if end, ok := scanStringEnd(line, q+len(quote), quote); ok {
		t.emit(token.String, line[start:end], startPos, token.Position{Line: lnum, Column: end}, line)
		return end, true, nil
	}
	if len(quote) == 3 {
		t.str = &openString{start: startPos, text: line[start:], line: line, quote: quote}
		return 0, false, nil
	}
	if endsWithContinuation(line) {
		t.str = &openString{start: startPos, text: line[start:], line: line, quote: quote, needCont: true}
		return 0, false, nil
	}
	return 0, false, &SyntaxError{Pos: startPos, Err: ErrUnterminatedString}
}

// scanStringEnd looks for quote in line from offset i, honoring backslash
// escapes. Single-quoted literals stop at an unescaped line break.
func scanStringEnd(line string, i int, quote string) (int, bool) {
	for i < len(line) {
		switch c := line[i]; {
		case c == '\\':
			i += 2
		case strings.HasPrefix(line[i:], quote):
			return i + len(quote), true
		case len(quote) == 1 && (c == '\n' || c == '\r'):
			return 0, false
		default:
			i++
		}
	}
	return 0, false
}

func endsWithContinuation(line string) bool {
	return strings.HasSuffix(line, "\\\n") || strings.HasSuffix(line, "\\\r\n")
}

var stringPrefixes = map[string]bool{
	"": true, "r": true, "u": true, "b": true, "br": true, "rb": true,
	"f": true, "fr": true, "rf": true,
}

// stringQuote reports the offset of the opening quote when a string literal
// (with an optional prefix) begins at start.
func stringQuote(line string, start int) (int, bool) {
	for n := 0; n <= 2 && start+n < len(line); n++ {
		c := line[start+n]
		if c == '\'' || c == '"' {
			return start + n, stringPrefixes[strings.ToLower(line[start:start+n])]
		}
		if !strings.ContainsRune("rRbBuUfF", rune(c)) {
			return 0, false
		}
	}
	return 0, false
}

func scanNumber(line string, i int) int {
	n := len(line)
	if line[i] == '0' && i+1 < n && strings.ContainsRune("xXoObB", rune(line[i+1])) {
		i += 2
		for i < n && (isHexDigit(line[i]) || line[i] == '_') {
			i++
		}
		return i
	}
	digits := func() {
		for i < n && (isDigit(line[i]) || line[i] == '_') {
			i++
		}
	}
	digits()
	if i < n && line[i] == '.' {
		i++
		digits()
	}
	if i < n && (line[i] == 'e' || line[i] == 'E') {
		j := i + 1
		if j < n && (line[j] == '+' || line[j] == '-') {
			j++
		}
		if j < n && isDigit(line[j]) {
			i = j
			digits()
		}
	}
	if i < n && (line[i] == 'j' || line[i] == 'J') {
		i++
	}
	return i
}

var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"**", "//", ">>", "<<", "<=", ">=", "==", "!=", "->", ":=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"(", ")", "[", "]", "{", "}", ":", ",", ";", ".", "+", "-", "*", "/",
	"%", "&", "|", "^", "~", "<", ">", "=", "@",
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc)
}
