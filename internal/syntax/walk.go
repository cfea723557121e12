package syntax

// Children returns the direct children of n in source order. Nil children
// are omitted.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}

	switch n := n.(type) {
	case *Module:
		add(n.Body...)
	case *Assign:
		add(n.Targets...)
		add(n.Value)
	case *AnnAssign:
		add(n.Target, n.Annotation, n.Value)
	case *AugAssign:
		add(n.Target, n.Value)
	case *Import, *ImportFrom, *Name, *Constant:
	case *FunctionDef:
		add(n.Decorators...)
		add(n.Params...)
		add(n.Returns)
		add(n.Body...)
	case *ClassDef:
		add(n.Decorators...)
		add(n.Bases...)
		add(n.Body...)
	case *ExprStmt:
		add(n.Value)
	case *Dict:
		for i := range n.Values {
			if i < len(n.Keys) {
				add(n.Keys[i])
			}
			add(n.Values[i])
		}
	case *Set:
		add(n.Elts...)
	case *Tuple:
		add(n.Elts...)
	case *List:
		add(n.Elts...)
	case *Call:
		add(n.Func)
		add(n.Args...)
		for _, kw := range n.Keywords {
			add(kw)
		}
	case *Keyword:
		add(n.Value)
	case *Attribute:
		add(n.Value)
	case *JoinedStr:
		add(n.Values...)
	case *FormattedValue:
		add(n.Value)
	case *Subscript:
		add(n.Value, n.Slice)
	case *Starred:
		add(n.Value)
	case *Await:
		add(n.Value)
	case *NamedExpr:
		add(n.Target, n.Value)
	case *Other:
		add(n.Children...)
	}
	return out
}

// Inspect traverses the tree rooted at n depth-first in source order,
// calling fn for each node before its children. Children are skipped when
// fn returns false.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, fn)
	}
}

// KindOf names the variant of n for diagnostics.
func KindOf(n Node) string {
	switch n := n.(type) {
	case nil:
		return "nil"
	case *Module:
		return "Module"
	case *Assign:
		return "Assign"
	case *AnnAssign:
		return "AnnAssign"
	case *AugAssign:
		return "AugAssign"
	case *Import:
		return "Import"
	case *ImportFrom:
		return "ImportFrom"
	case *FunctionDef:
		return "FunctionDef"
	case *ClassDef:
		return "ClassDef"
	case *ExprStmt:
		return "Expr"
	case *Dict:
		return "Dict"
	case *Set:
		return "Set"
	case *Tuple:
		return "Tuple"
	case *List:
		return "List"
	case *Call:
		return "Call"
	case *Keyword:
		return "keyword"
	case *Attribute:
		return "Attribute"
	case *Name:
		return "Name"
	case *Constant:
		return "Constant"
	case *JoinedStr:
		return "JoinedStr"
	case *FormattedValue:
		return "FormattedValue"
	case *Subscript:
		return "Subscript"
	case *Starred:
		return "Starred"
	case *Await:
		return "Await"
	case *NamedExpr:
		return "NamedExpr"
	case *Other:
		return n.Kind
	}
	return "unknown"
}
