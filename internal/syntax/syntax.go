// Package syntax is the Python syntax tree the rule engine walks. Only the
// node shapes the rules inspect get their own variant; every other grammar
// construct is kept as an Other node so traversal still reaches its
// children.
package syntax

import "github.com/routable/routable-lint/internal/token"

// Node is implemented by every variant in this package and nothing else.
type Node interface {
	Start() token.Position
	Finish() token.Position
	node()
}

// Span is embedded in every node.
type Span struct {
	Pos token.Position
	End token.Position
}

func (s Span) Start() token.Position  { return s.Pos }
func (s Span) Finish() token.Position { return s.End }
func (Span) node()                    {}

// Module is the root of a parsed file.
type Module struct {
	Span
	Body []Node
}

// Assign is `a = b = value`. Targets are listed left to right.
type Assign struct {
	Span
	Targets []Node
	Value   Node
}

// AnnAssign is `target: annotation = value`; Value may be nil.
type AnnAssign struct {
	Span
	Target     Node
	Annotation Node
	Value      Node
}

// AugAssign is `target op= value`.
type AugAssign struct {
	Span
	Target Node
	Op     string
	Value  Node
}

// Alias is one imported name, `name as asname`.
type Alias struct {
	Name   string
	AsName string
}

// Import is `import a.b as c`.
type Import struct {
	Span
	Names []Alias
}

// ImportFrom is `from ..module import names`. Module is empty for a bare
// relative import such as `from . import x`; Level counts the leading dots.
type ImportFrom struct {
	Span
	Module string
	Names  []Alias
	Level  int
}

// FunctionDef is a `def` or `async def` statement. Decorators precede it.
type FunctionDef struct {
	Span
	Name       string
	Async      bool
	Decorators []Node
	Params     []Node
	Returns    Node
	Body       []Node
}

// ClassDef is a `class` statement.
type ClassDef struct {
	Span
	Name       string
	Decorators []Node
	Bases      []Node
	Body       []Node
}

// ExprStmt is an expression used as a statement, e.g. a docstring.
type ExprStmt struct {
	Span
	Value Node
}

// Dict is a dict display. A nil key marks a `**mapping` entry.
type Dict struct {
	Span
	Keys   []Node
	Values []Node
}

// Set is a set display.
type Set struct {
	Span
	Elts []Node
}

// Tuple is a tuple display, parenthesized or not.
type Tuple struct {
	Span
	Elts []Node
}

// List is a list display.
type List struct {
	Span
	Elts []Node
}

// Call is `func(args, name=value)`.
type Call struct {
	Span
	Func     Node
	Args     []Node
	Keywords []*Keyword
}

// Keyword is a `name=value` call argument; Arg is empty for `**kwargs`.
type Keyword struct {
	Span
	Arg   string
	Value Node
}

// Attribute is `value.attr`. AttrPos locates the attribute name.
type Attribute struct {
	Span
	Value   Node
	Attr    string
	AttrPos token.Position
}

// Name is an identifier reference.
type Name struct {
	Span
	ID string
}

// ConstKind distinguishes literal constants.
type ConstKind uint8

const (
	ConstStr ConstKind = iota
	ConstBytes
	ConstInt
	ConstFloat
	ConstComplex
	ConstBool
	ConstNone
	ConstEllipsis
)

// Constant is a literal. Value holds the rendering Python's str() would
// give the literal's value.
type Constant struct {
	Span
	Kind  ConstKind
	Value string
}

// JoinedStr is an f-string; Values alternate Constant and FormattedValue.
type JoinedStr struct {
	Span
	Values []Node
}

// FormattedValue is one `{expr}` field of an f-string.
type FormattedValue struct {
	Span
	Value Node
}

// Subscript is `value[slice]`.
type Subscript struct {
	Span
	Value Node
	Slice Node
}

// Starred is `*value`.
type Starred struct {
	Span
	Value Node
}

// Await is `await value`.
type Await struct {
	Span
	Value Node
}

// NamedExpr is `target := value`.
type NamedExpr struct {
	Span
	Target Node
	Value  Node
}

// Other is any construct without a dedicated variant. Kind is the grammar
// name of the construct, e.g. "binary_operator" or "return_statement".
type Other struct {
	Span
	Kind     string
	Children []Node
}
