package routable

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/routable/routable-lint/internal/syntax"
	"github.com/routable/routable-lint/internal/token"
)

// Diagnostic records an expression the renderer could not turn into text.
// It never becomes a Finding.
type Diagnostic struct {
	Pos      token.Position `json:"pos"`
	NodeKind string         `json:"node_kind"`
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Message)
}

// renderer turns expressions into the plain text used for ordering
// comparisons.
type renderer struct {
	logger      *slog.Logger
	diagnostics []Diagnostic
}

// render renders n. Attribute chains become dotted paths, calls render as
// their callee, constants as their value, and names as their identifier.
// Joined strings and tuples concatenate their parts. Nodes that wrap a
// single value render that value. Anything else renders as "" and is
// recorded as a Diagnostic.
func (r *renderer) render(n syntax.Node) string {
	switch n := n.(type) {
	case *syntax.Attribute:
		return r.render(n.Value) + "." + n.Attr
	case *syntax.Call:
		return r.render(n.Func)
	case *syntax.Constant:
		return n.Value
	case *syntax.Name:
		return n.ID
	case *syntax.JoinedStr:
		return r.join(n.Values)
	case *syntax.Tuple:
		return r.join(n.Elts)
	}

	if v, ok := valueOf(n); ok {
		return r.render(v)
	}
	r.unparseable(n)
	return ""
}

func (r *renderer) join(nodes []syntax.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(r.render(n))
	}
	return b.String()
}

// valueOf reports the wrapped value of nodes that carry one.
func valueOf(n syntax.Node) (syntax.Node, bool) {
	switch n := n.(type) {
	case *syntax.ExprStmt:
		return n.Value, true
	case *syntax.Assign:
		return n.Value, true
	case *syntax.AnnAssign:
		return n.Value, true
	case *syntax.AugAssign:
		return n.Value, true
	case *syntax.Keyword:
		return n.Value, true
	case *syntax.FormattedValue:
		return n.Value, true
	case *syntax.Subscript:
		return n.Value, true
	case *syntax.Starred:
		return n.Value, true
	case *syntax.Await:
		return n.Value, true
	case *syntax.NamedExpr:
		return n.Value, true
	case *syntax.Other:
		switch n.Kind {
		case "return_statement", "yield":
			if len(n.Children) > 0 {
				return n.Children[0], true
			}
			return nil, true
		}
	}
	return nil, false
}

func (r *renderer) unparseable(n syntax.Node) {
	d := Diagnostic{NodeKind: syntax.KindOf(n)}
	if n != nil {
		d.Pos = n.Start()
	}
	d.Message = fmt.Sprintf("could not render %s node", d.NodeKind)
	r.diagnostics = append(r.diagnostics, d)

	if r.logger != nil {
		r.logger.Warn("unrenderable expression", "node", d.NodeKind, "pos", d.Pos.String())
	}
}
