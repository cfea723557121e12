package tokenize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routable/routable-lint/internal/token"
)

type tok struct {
	kind token.Kind
	text string
	pos  string
}

func simplify(tokens []token.Token) []tok {
	out := make([]tok, len(tokens))
	for i, t := range tokens {
		out[i] = tok{t.Kind, t.Text, t.Start.String()}
	}
	return out
}

func TestTokenizeSimpleStatement(t *testing.T) {
	tokens, err := Tokenize("x = 1\n")
	require.NoError(t, err)
	assert.Equal(t, []tok{
		{token.Name, "x", "1:0"},
		{token.Op, "=", "1:2"},
		{token.Number, "1", "1:4"},
		{token.Newline, "\n", "1:5"},
		{token.EndMarker, "", "2:0"},
	}, simplify(tokens))
}

func TestTokenizeMissingTrailingNewline(t *testing.T) {
	tokens, err := Tokenize("X = 4")
	require.NoError(t, err)
	assert.Equal(t, []tok{
		{token.Name, "X", "1:0"},
		{token.Op, "=", "1:2"},
		{token.Number, "4", "1:4"},
		{token.Newline, "", "1:5"},
		{token.EndMarker, "", "2:0"},
	}, simplify(tokens))
}

func TestTokenizeCommentsAndBlankLines(t *testing.T) {
	tokens, err := Tokenize("# Setup\n\nx = 1  # trailing\n")
	require.NoError(t, err)
	assert.Equal(t, []tok{
		{token.Comment, "# Setup", "1:0"},
		{token.NL, "\n", "1:7"},
		{token.NL, "\n", "2:0"},
		{token.Name, "x", "3:0"},
		{token.Op, "=", "3:2"},
		{token.Number, "1", "3:4"},
		{token.Comment, "# trailing", "3:7"},
		{token.Newline, "\n", "3:17"},
		{token.EndMarker, "", "4:0"},
	}, simplify(tokens))
}

func TestTokenizeIndentation(t *testing.T) {
	src := "class Foo:\n" +
		"    # comment\n" +
		"    pass\n" +
		"x = 1\n"
	tokens, err := Tokenize(src)
	require.NoError(t, err)
	assert.Equal(t, []tok{
		{token.Name, "class", "1:0"},
		{token.Name, "Foo", "1:6"},
		{token.Op, ":", "1:9"},
		{token.Newline, "\n", "1:10"},
		{token.Comment, "# comment", "2:4"},
		{token.NL, "\n", "2:13"},
		{token.Indent, "    ", "3:0"},
		{token.Name, "pass", "3:4"},
		{token.Newline, "\n", "3:8"},
		{token.Dedent, "", "4:0"},
		{token.Name, "x", "4:0"},
		{token.Op, "=", "4:2"},
		{token.Number, "1", "4:4"},
		{token.Newline, "\n", "4:5"},
		{token.EndMarker, "", "5:0"},
	}, simplify(tokens))
}

func TestTokenizeClosingDedents(t *testing.T) {
	tokens, err := Tokenize("def f():\n    if x:\n        pass\n")
	require.NoError(t, err)

	n := len(tokens)
	require.GreaterOrEqual(t, n, 3)
	assert.Equal(t, tok{token.Dedent, "", "4:0"}, simplify(tokens[n-3 : n-2])[0])
	assert.Equal(t, tok{token.Dedent, "", "4:0"}, simplify(tokens[n-2 : n-1])[0])
	assert.Equal(t, token.EndMarker, tokens[n-1].Kind)
}

func TestTokenizeBracketsProduceNL(t *testing.T) {
	tokens, err := Tokenize("x = [\n    1,\n]\n")
	require.NoError(t, err)
	kinds := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		kinds[i] = t.Kind
	}
	assert.Equal(t, []token.Kind{
		token.Name, token.Op, token.Op, token.NL,
		token.Number, token.Op, token.NL,
		token.Op, token.Newline, token.EndMarker,
	}, kinds)
}

func TestTokenizeMultiLineString(t *testing.T) {
	src := "copy = \"\"\"a\n    b\"\"\"\n"
	tokens, err := Tokenize(src)
	require.NoError(t, err)

	s := tokens[2]
	assert.Equal(t, token.String, s.Kind)
	assert.Equal(t, "\"\"\"a\n    b\"\"\"", s.Text)
	assert.Equal(t, token.Position{Line: 1, Column: 7}, s.Start)
	assert.Equal(t, token.Position{Line: 2, Column: 8}, s.End)
	assert.Equal(t, src, s.Line)
}

func TestTokenizeStringPrefixes(t *testing.T) {
	tokens, err := Tokenize("a = f'{b} a' + rb'x' + u\"y\"\n")
	require.NoError(t, err)
	assert.Equal(t, "f'{b} a'", tokens[2].Text)
	assert.Equal(t, "rb'x'", tokens[4].Text)
	assert.Equal(t, "u\"y\"", tokens[6].Text)
}

func TestTokenizeOperators(t *testing.T) {
	tokens, err := Tokenize("def f(*args, **kwargs) -> None: ...\n")
	require.NoError(t, err)

	var ops []string
	for _, t := range tokens {
		if t.Kind == token.Op {
			ops = append(ops, t.Text)
		}
	}
	assert.Equal(t, []string{"(", "*", ",", "**", ")", "->", ":", "..."}, ops)
}

func TestTokenizeNumbers(t *testing.T) {
	tokens, err := Tokenize("a = 0x_FF + 1_000 + 1.5e-3 + 2j + .5\n")
	require.NoError(t, err)

	var nums []string
	for _, t := range tokens {
		if t.Kind == token.Number {
			nums = append(nums, t.Text)
		}
	}
	assert.Equal(t, []string{"0x_FF", "1_000", "1.5e-3", "2j", ".5"}, nums)
}

func TestTokenizeLineContinuation(t *testing.T) {
	tokens, err := Tokenize("x = 1 + \\\n    2\n")
	require.NoError(t, err)
	for _, tok := range tokens {
		assert.NotEqual(t, token.Indent, tok.Kind)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unterminated single quote", "x = 'abc\n", ErrUnterminatedString},
		{"unterminated triple quote", "x = '''abc\n", ErrUnterminatedString},
		{"open bracket", "x = (1,\n", ErrEOFInStatement},
		{"inconsistent dedent", "if x:\n        a\n    b\n", ErrInconsistentDedent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var syntaxErr *SyntaxError
			assert.True(t, errors.As(err, &syntaxErr))
		})
	}
}
