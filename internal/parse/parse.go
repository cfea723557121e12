// Package parse lowers Python source into the syntax tree the rule engine
// walks, using the tree-sitter Python grammar.
package parse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/routable/routable-lint/internal/syntax"
	"github.com/routable/routable-lint/internal/token"
)

// ErrSyntax is returned when the grammar could not parse the whole file.
var ErrSyntax = errors.New("invalid syntax")

// SyntaxError locates the first node the grammar could not parse. It matches
// ErrSyntax under errors.Is.
type SyntaxError struct {
	Pos token.Position
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at %s", ErrSyntax, e.Pos)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// Parse parses src as a Python module. A fresh tree-sitter parser is created
// for every call, so Parse is safe for concurrent use.
func Parse(ctx context.Context, src []byte) (*syntax.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("tree-sitter returned nil root node")
	}
	if root.HasError() {
		return nil, &SyntaxError{Pos: firstError(root)}
	}

	l := &lowerer{src: src}
	return &syntax.Module{Span: l.span(root), Body: l.statements(root)}, nil
}

// firstError returns the position of the first ERROR or missing node.
func firstError(n *sitter.Node) token.Position {
	if n.Type() == "ERROR" || n.IsMissing() {
		return point(n.StartPoint())
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.HasError() {
			return firstError(c)
		}
	}
	return point(n.StartPoint())
}

func point(p sitter.Point) token.Position {
	return token.Position{Line: int(p.Row) + 1, Column: int(p.Column)}
}

type lowerer struct {
	src []byte
}

func (l *lowerer) span(n *sitter.Node) syntax.Span {
	return syntax.Span{Pos: point(n.StartPoint()), End: point(n.EndPoint())}
}

func (l *lowerer) text(n *sitter.Node) string {
	return n.Content(l.src)
}

// named returns the named children of n, comments excluded.
func named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c != nil && c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if kids := named(n); len(kids) > 0 {
		return kids[0]
	}
	return nil
}

// statements lowers the statements of a module or block.
func (l *lowerer) statements(n *sitter.Node) []syntax.Node {
	var out []syntax.Node
	for _, c := range named(n) {
		out = append(out, l.lower(c))
	}
	return out
}

func (l *lowerer) lowerAll(nodes []*sitter.Node) []syntax.Node {
	out := make([]syntax.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, l.lower(n))
	}
	return out
}

// optional lowers n, returning nil for a missing child.
func (l *lowerer) optional(n *sitter.Node) syntax.Node {
	if n == nil {
		return nil
	}
	return l.lower(n)
}

func (l *lowerer) lower(n *sitter.Node) syntax.Node {
	switch n.Type() {
	case "expression_statement":
		return l.expressionStatement(n)
	case "import_statement":
		return &syntax.Import{Span: l.span(n), Names: l.aliases(named(n))}
	case "import_from_statement":
		return l.importFrom(n)
	case "future_import_statement":
		return &syntax.ImportFrom{Span: l.span(n), Module: "__future__", Names: l.aliases(named(n))}
	case "function_definition":
		return l.functionDef(n)
	case "class_definition":
		return l.classDef(n)
	case "decorated_definition":
		return l.decorated(n)

	case "identifier":
		return &syntax.Name{Span: l.span(n), ID: l.text(n)}
	case "attribute":
		attr := n.ChildByFieldName("attribute")
		return &syntax.Attribute{
			Span:    l.span(n),
			Value:   l.optional(n.ChildByFieldName("object")),
			Attr:    l.text(attr),
			AttrPos: point(attr.StartPoint()),
		}
	case "call":
		return l.call(n)
	case "string":
		return l.stringLiteral(n)
	case "concatenated_string":
		return l.concatenated(n)
	case "integer":
		return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstInt, Value: intValue(l.text(n))}
	case "float":
		text := l.text(n)
		if strings.HasSuffix(text, "j") || strings.HasSuffix(text, "J") {
			return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstComplex, Value: text}
		}
		return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstFloat, Value: floatValue(text)}
	case "true":
		return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstBool, Value: "True"}
	case "false":
		return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstBool, Value: "False"}
	case "none":
		return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstNone, Value: "None"}
	case "ellipsis":
		return &syntax.Constant{Span: l.span(n), Kind: syntax.ConstEllipsis, Value: "Ellipsis"}
	case "tuple", "expression_list", "pattern_list", "tuple_pattern":
		return &syntax.Tuple{Span: l.span(n), Elts: l.lowerAll(named(n))}
	case "list", "list_pattern":
		return &syntax.List{Span: l.span(n), Elts: l.lowerAll(named(n))}
	case "set":
		return &syntax.Set{Span: l.span(n), Elts: l.lowerAll(named(n))}
	case "dictionary":
		return l.dict(n)
	case "parenthesized_expression":
		if inner := firstNamed(n); inner != nil {
			return l.lower(inner)
		}
	case "subscript":
		return l.subscript(n)
	case "list_splat", "list_splat_pattern":
		return &syntax.Starred{Span: l.span(n), Value: l.optional(firstNamed(n))}
	case "await":
		return &syntax.Await{Span: l.span(n), Value: l.optional(firstNamed(n))}
	case "named_expression":
		return &syntax.NamedExpr{
			Span:   l.span(n),
			Target: l.optional(n.ChildByFieldName("name")),
			Value:  l.optional(n.ChildByFieldName("value")),
		}
	case "interpolation":
		return l.interpolation(n)
	}
	return &syntax.Other{Span: l.span(n), Kind: n.Type(), Children: l.lowerAll(named(n))}
}

func (l *lowerer) expressionStatement(n *sitter.Node) syntax.Node {
	kids := named(n)
	if len(kids) == 1 {
		switch c := kids[0]; c.Type() {
		case "assignment":
			return l.assignment(c)
		case "augmented_assignment":
			return &syntax.AugAssign{
				Span:   l.span(c),
				Target: l.optional(c.ChildByFieldName("left")),
				Op:     l.text(c.ChildByFieldName("operator")),
				Value:  l.optional(c.ChildByFieldName("right")),
			}
		default:
			return &syntax.ExprStmt{Span: l.span(n), Value: l.lower(c)}
		}
	}
	return &syntax.ExprStmt{Span: l.span(n), Value: &syntax.Tuple{Span: l.span(n), Elts: l.lowerAll(kids)}}
}

// assignment flattens `a = b = value` into a single Assign with two targets.
func (l *lowerer) assignment(n *sitter.Node) syntax.Node {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if typ := n.ChildByFieldName("type"); typ != nil {
		return &syntax.AnnAssign{
			Span:       l.span(n),
			Target:     l.optional(left),
			Annotation: l.lower(typ),
			Value:      l.optional(right),
		}
	}

	targets := []syntax.Node{l.lower(left)}
	for right != nil && right.Type() == "assignment" && right.ChildByFieldName("type") == nil {
		targets = append(targets, l.lower(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}
	return &syntax.Assign{Span: l.span(n), Targets: targets, Value: l.optional(right)}
}

func (l *lowerer) aliases(nodes []*sitter.Node) []syntax.Alias {
	var out []syntax.Alias
	for _, c := range nodes {
		switch c.Type() {
		case "aliased_import":
			out = append(out, syntax.Alias{
				Name:   dotted(l.text(c.ChildByFieldName("name"))),
				AsName: l.text(c.ChildByFieldName("alias")),
			})
		case "wildcard_import":
			out = append(out, syntax.Alias{Name: "*"})
		default:
			out = append(out, syntax.Alias{Name: dotted(l.text(c))})
		}
	}
	return out
}

// importFrom walks the children in order: everything before the `import`
// keyword names the module, everything after it the imported names.
func (l *lowerer) importFrom(n *sitter.Node) syntax.Node {
	imp := &syntax.ImportFrom{Span: l.span(n)}
	var names []*sitter.Node
	sawImport := false

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			for _, rc := range named(c) {
				switch rc.Type() {
				case "import_prefix":
					imp.Level = strings.Count(l.text(rc), ".")
				case "dotted_name":
					imp.Module = dotted(l.text(rc))
				}
			}
		case "dotted_name", "aliased_import", "wildcard_import", "identifier":
			if sawImport {
				names = append(names, c)
			} else {
				imp.Module = dotted(l.text(c))
			}
		}
	}
	imp.Names = l.aliases(names)
	return imp
}

func dotted(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func (l *lowerer) functionDef(n *sitter.Node) *syntax.FunctionDef {
	fn := &syntax.FunctionDef{
		Span:    l.span(n),
		Name:    l.text(n.ChildByFieldName("name")),
		Params:  l.lowerAll(named(n.ChildByFieldName("parameters"))),
		Returns: l.optional(n.ChildByFieldName("return_type")),
		Body:    l.statements(n.ChildByFieldName("body")),
	}
	if first := n.Child(0); first != nil && first.Type() == "async" {
		fn.Async = true
	}
	return fn
}

func (l *lowerer) classDef(n *sitter.Node) *syntax.ClassDef {
	cls := &syntax.ClassDef{
		Span: l.span(n),
		Name: l.text(n.ChildByFieldName("name")),
		Body: l.statements(n.ChildByFieldName("body")),
	}
	if bases := n.ChildByFieldName("superclasses"); bases != nil {
		cls.Bases = l.arguments(bases, nil)
	}
	return cls
}

func (l *lowerer) decorated(n *sitter.Node) syntax.Node {
	var decorators []syntax.Node
	for _, c := range named(n) {
		if c.Type() == "decorator" {
			decorators = append(decorators, l.optional(firstNamed(c)))
		}
	}

	def := n.ChildByFieldName("definition")
	if def == nil {
		return &syntax.Other{Span: l.span(n), Kind: n.Type(), Children: decorators}
	}
	switch def.Type() {
	case "function_definition":
		fn := l.functionDef(def)
		fn.Decorators = decorators
		return fn
	case "class_definition":
		cls := l.classDef(def)
		cls.Decorators = decorators
		return cls
	}
	return &syntax.Other{Span: l.span(n), Kind: n.Type(), Children: append(decorators, l.lower(def))}
}

func (l *lowerer) call(n *sitter.Node) syntax.Node {
	c := &syntax.Call{Span: l.span(n), Func: l.optional(n.ChildByFieldName("function"))}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return c
	}
	if args.Type() == "generator_expression" {
		c.Args = []syntax.Node{l.lower(args)}
		return c
	}
	c.Args = l.arguments(args, &c.Keywords)
	return c
}

// arguments lowers an argument list. Keyword arguments are collected into
// keywords when it is non-nil and kept positional otherwise.
func (l *lowerer) arguments(n *sitter.Node, keywords *[]*syntax.Keyword) []syntax.Node {
	var args []syntax.Node
	for _, a := range named(n) {
		var kw *syntax.Keyword
		switch a.Type() {
		case "keyword_argument":
			kw = &syntax.Keyword{
				Span:  l.span(a),
				Arg:   l.text(a.ChildByFieldName("name")),
				Value: l.optional(a.ChildByFieldName("value")),
			}
		case "dictionary_splat":
			kw = &syntax.Keyword{Span: l.span(a), Value: l.optional(firstNamed(a))}
		default:
			args = append(args, l.lower(a))
			continue
		}
		if keywords != nil {
			*keywords = append(*keywords, kw)
		} else {
			args = append(args, kw)
		}
	}
	return args
}

func (l *lowerer) dict(n *sitter.Node) syntax.Node {
	d := &syntax.Dict{Span: l.span(n)}
	for _, c := range named(n) {
		switch c.Type() {
		case "pair":
			d.Keys = append(d.Keys, l.optional(c.ChildByFieldName("key")))
			d.Values = append(d.Values, l.optional(c.ChildByFieldName("value")))
		case "dictionary_splat":
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, l.optional(firstNamed(c)))
		default:
			return &syntax.Other{Span: l.span(n), Kind: "dictionary_comprehension", Children: l.lowerAll(named(n))}
		}
	}
	return d
}

func (l *lowerer) subscript(n *sitter.Node) syntax.Node {
	value := n.ChildByFieldName("value")
	var slices []*sitter.Node
	for _, c := range named(n) {
		if c.StartByte() == value.StartByte() && c.EndByte() == value.EndByte() {
			continue
		}
		slices = append(slices, c)
	}

	s := &syntax.Subscript{Span: l.span(n), Value: l.lower(value)}
	switch len(slices) {
	case 0:
	case 1:
		s.Slice = l.lower(slices[0])
	default:
		s.Slice = &syntax.Tuple{Span: l.span(slices[0]), Elts: l.lowerAll(slices)}
	}
	return s
}

func (l *lowerer) interpolation(n *sitter.Node) syntax.Node {
	expr := n.ChildByFieldName("expression")
	if expr == nil {
		expr = firstNamed(n)
	}
	return &syntax.FormattedValue{Span: l.span(n), Value: l.optional(expr)}
}
