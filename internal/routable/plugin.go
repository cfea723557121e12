package routable

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/routable/routable-lint/internal/parse"
	"github.com/routable/routable-lint/internal/syntax"
	"github.com/routable/routable-lint/internal/token"
	"github.com/routable/routable-lint/internal/tokenize"
)

// Origin identifies this engine to hosts that aggregate several rule packs.
const Origin = "routable"

// Version is the engine version. Cached results are keyed on it.
const Version = "1.0.0"

// Plugin analyzes one file. Tree and Tokens must describe the same source.
type Plugin struct {
	Filename string
	Tree     syntax.Node
	Tokens   []token.Token
	// Logger receives rendering diagnostics; slog.Default() when nil.
	Logger *slog.Logger

	diagnostics []Diagnostic
}

// Run yields the walker's findings followed by the scanner's. Findings are
// neither sorted nor deduplicated.
func (p *Plugin) Run() iter.Seq[Finding] {
	return func(yield func(Finding) bool) {
		logger := p.Logger
		if logger == nil {
			logger = slog.Default()
		}

		w := &Walker{Filename: p.Filename, Logger: logger}
		var treeFindings []Finding
		if p.Tree != nil {
			treeFindings = w.Walk(p.Tree)
		}
		p.diagnostics = w.Diagnostics()

		for _, f := range treeFindings {
			if !yield(f) {
				return
			}
		}
		for _, f := range NewScanner().Scan(p.Tokens) {
			if !yield(f) {
				return
			}
		}
	}
}

// Findings runs the plugin and collects every finding.
func (p *Plugin) Findings() []Finding {
	var out []Finding
	for f := range p.Run() {
		out = append(out, f)
	}
	return out
}

// Diagnostics returns the rendering diagnostics of the last run.
func (p *Plugin) Diagnostics() []Diagnostic {
	return p.diagnostics
}

// Check tokenizes and parses src and runs the plugin over it.
func Check(ctx context.Context, filename string, src []byte) ([]Finding, error) {
	tokens, err := tokenize.Tokenize(string(src))
	if err != nil {
		return nil, fmt.Errorf("tokenizing %s: %w", filename, err)
	}
	tree, err := parse.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	p := &Plugin{Filename: filename, Tree: tree, Tokens: tokens}
	return p.Findings(), nil
}

// SourceErrorPos returns where tokenizing or parsing stopped, if err carries
// a position.
func SourceErrorPos(err error) (token.Position, bool) {
	var tokErr *tokenize.SyntaxError
	if errors.As(err, &tokErr) {
		return tokErr.Pos, true
	}
	var parseErr *parse.SyntaxError
	if errors.As(err, &parseErr) {
		return parseErr.Pos, true
	}
	return token.Position{}, false
}

// IsSourceError reports whether err comes from malformed source rather than
// an I/O or cancellation problem.
func IsSourceError(err error) bool {
	var tokErr *tokenize.SyntaxError
	return errors.As(err, &tokErr) || errors.Is(err, parse.ErrSyntax)
}
