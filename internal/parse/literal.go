package parse

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/routable/routable-lint/internal/syntax"
)

// literal is the decomposition of a string token: its prefix letters, the
// quote sequence and the byte range of the body inside the source.
type literal struct {
	prefix    string
	quote     string
	bodyStart uint32
	bodyEnd   uint32
}

func (l *lowerer) splitLiteral(n *sitter.Node) literal {
	text := l.text(n)
	i := 0
	for i < len(text) && text[i] != '\'' && text[i] != '"' {
		i++
	}
	lit := literal{prefix: strings.ToLower(text[:i])}
	if i == len(text) {
		lit.bodyStart, lit.bodyEnd = n.EndByte(), n.EndByte()
		return lit
	}

	lit.quote = text[i : i+1]
	if strings.HasPrefix(text[i:], strings.Repeat(lit.quote, 3)) && len(text)-i >= 6 {
		lit.quote = strings.Repeat(lit.quote, 3)
	}
	lit.bodyStart = n.StartByte() + uint32(i+len(lit.quote))
	lit.bodyEnd = n.EndByte()
	if strings.HasSuffix(text, lit.quote) && n.EndByte()-uint32(len(lit.quote)) >= lit.bodyStart {
		lit.bodyEnd = n.EndByte() - uint32(len(lit.quote))
	}
	return lit
}

func (lit literal) raw() bool   { return strings.Contains(lit.prefix, "r") }
func (lit literal) bytes() bool { return strings.Contains(lit.prefix, "b") }
func (lit literal) fmt() bool   { return strings.Contains(lit.prefix, "f") }

func (l *lowerer) decode(lit literal, from, to uint32, fstring bool) string {
	s := string(l.src[from:to])
	if !lit.raw() {
		s = unescape(s)
	}
	if fstring {
		s = strings.NewReplacer("{{", "{", "}}", "}").Replace(s)
	}
	return s
}

// stringLiteral lowers a single string token to a Constant, or to a
// JoinedStr for f-strings.
func (l *lowerer) stringLiteral(n *sitter.Node) syntax.Node {
	lit := l.splitLiteral(n)
	switch {
	case lit.bytes():
		body := string(l.src[lit.bodyStart:lit.bodyEnd])
		return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstBytes, Value: "b'" + body + "'"}
	case lit.fmt():
		return &syntax.JoinedStr{Span: l.span(n), Values: l.fstringParts(n, lit)}
	}
	return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstStr, Value: l.decode(lit, lit.bodyStart, lit.bodyEnd, false)}
}

// fstringParts splits an f-string body around its interpolations. Empty
// literal segments are dropped.
func (l *lowerer) fstringParts(n *sitter.Node, lit literal) []syntax.Node {
	var fields []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() == "interpolation" {
			fields = append(fields, c)
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].StartByte() < fields[j].StartByte() })

	var parts []syntax.Node
	at := lit.bodyStart
	literalPart := func(to uint32) {
		if to <= at {
			return
		}
		if s := l.decode(lit, at, to, true); s != "" {
			parts = append(parts, &syntax.Constant{Span: l.span(n), Kind: syntax.ConstStr, Value: s})
		}
	}
	for _, f := range fields {
		literalPart(f.StartByte())
		parts = append(parts, l.interpolation(f))
		at = f.EndByte()
	}
	literalPart(lit.bodyEnd)
	return parts
}

// concatenated folds implicitly joined literals into one node the way the
// compiler does.
func (l *lowerer) concatenated(n *sitter.Node) syntax.Node {
	var (
		parts   []syntax.Node
		joined  strings.Builder
		isBytes bool
		isF     bool
	)
	for _, c := range named(n) {
		if c.Type() != "string" {
			continue
		}
		lit := l.splitLiteral(c)
		switch {
		case lit.bytes():
			isBytes = true
			joined.Write(l.src[lit.bodyStart:lit.bodyEnd])
		case lit.fmt():
			isF = true
			parts = append(parts, l.fstringParts(c, lit)...)
		default:
			s := l.decode(lit, lit.bodyStart, lit.bodyEnd, false)
			joined.WriteString(s)
			if s != "" {
				parts = append(parts, &syntax.Constant{Span: l.span(c), Kind: syntax.ConstStr, Value: s})
			}
		}
	}

	switch {
	case isF:
		return &syntax.JoinedStr{Span: l.span(n), Values: mergeConstants(parts)}
	case isBytes:
		return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstBytes, Value: "b'" + joined.String() + "'"}
	}
	return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstStr, Value: joined.String()}
}

// mergeConstants joins adjacent string constants of an f-string.
func mergeConstants(parts []syntax.Node) []syntax.Node {
	var out []syntax.Node
	for _, p := range parts {
		c, ok := p.(*syntax.Constant)
		if ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(*syntax.Constant); ok {
				out[len(out)-1] = &syntax.Constant{Span: prev.Span, Kind: syntax.ConstStr, Value: prev.Value + c.Value}
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

var simpleEscapes = map[byte]string{
	'\\': "\\", '\'': "'", '"': "\"", 'a': "\a", 'b': "\b", 'f': "\f",
	'n': "\n", 'r': "\r", 't': "\t", 'v': "\v",
}

// unescape decodes the backslash escapes of a non-raw string body.
// Unrecognized escapes are kept verbatim.
func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		c := s[i+1]
		if rep, ok := simpleEscapes[c]; ok {
			b.WriteString(rep)
			i++
			continue
		}
		switch {
		case c == '\n':
			i++
		case c == '\r':
			i++
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case c >= '0' && c <= '7':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i+1:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		case c == 'x' || c == 'u' || c == 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[c]
			if i+2+width > len(s) {
				b.WriteByte(s[i])
				continue
			}
			v, err := strconv.ParseUint(s[i+2:i+2+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(v)) {
				b.WriteByte(s[i])
				continue
			}
			b.WriteRune(rune(v))
			i += 1 + width
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// intValue renders an integer literal in decimal, as str() would.
func intValue(text string) string {
	v, ok := new(big.Int).SetString(strings.ReplaceAll(text, "_", ""), 0)
	if !ok {
		return text
	}
	return v.String()
}

// floatValue renders a float literal as Python's repr does: shortest
// round-trip digits, fixed notation between 1e-4 and 1e16.
func floatValue(text string) string {
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil && !math.IsInf(f, 0) {
		return text
	}
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case f == 0:
		return "0.0"
	}
	if a := math.Abs(f); a >= 1e16 || a < 1e-4 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		exp = strings.TrimLeft(exp[1:], "0")
		if len(exp) < 2 {
			exp = strings.Repeat("0", 2-len(exp)) + exp
		}
		return mant + "e" + string(sign) + exp
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
