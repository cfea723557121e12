package routable

import (
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/routable/routable-lint/internal/syntax"
)

// Walker applies the tree rules in a single pre-order traversal. Handlers
// never stop the traversal from descending into a node's children.
type Walker struct {
	// Filename is consulted by the model field rules, which skip test files.
	Filename string
	Logger   *slog.Logger

	findings []Finding
	render   renderer
	run      constantRun
}

// constantRun is the open group of uppercase assignments on consecutive
// lines.
type constantRun struct {
	nodes   []*syntax.Assign
	lastEnd int
	started bool
}

// Walk traverses root and returns the findings in traversal order followed
// by the check of the final constant group.
func (w *Walker) Walk(root syntax.Node) []Finding {
	w.findings = nil
	w.render = renderer{logger: w.Logger}
	w.run = constantRun{}

	syntax.Inspect(root, func(n syntax.Node) bool {
		w.visit(n)
		return true
	})
	w.checkConstantOrder(w.run.nodes)
	return w.findings
}

// Diagnostics returns the expressions the last Walk could not render.
func (w *Walker) Diagnostics() []Diagnostic {
	return w.render.diagnostics
}

func (w *Walker) report(n syntax.Node, code Code) {
	w.findings = append(w.findings, newFinding(n.Start(), code))
}

func (w *Walker) visit(n syntax.Node) {
	switch n := n.(type) {
	case *syntax.Assign:
		w.visitAssign(n)
	case *syntax.Dict:
		if !slices.Contains(n.Keys, nil) && !w.ordered(n.Keys) {
			w.report(n, ROU103)
		}
	case *syntax.Set:
		if !w.ordered(n.Elts) {
			w.report(n, ROU103)
		}
	case *syntax.ImportFrom:
		w.visitImportFrom(n)
	case *syntax.FunctionDef:
		w.visitFunctionDef(n)
	case *syntax.ClassDef:
		w.visitClassDef(n)
	}
}

func (w *Walker) visitAssign(n *syntax.Assign) {
	if len(n.Targets) == 0 {
		return
	}
	name, ok := n.Targets[0].(*syntax.Name)
	if !ok || !isUpper(name.ID) {
		return
	}

	if !w.run.started || w.run.lastEnd != n.Start().Line-1 {
		w.checkConstantOrder(w.run.nodes)
		w.run.nodes = nil
	}
	w.run.nodes = append(w.run.nodes, n)
	w.run.lastEnd = n.Finish().Line
	w.run.started = true
}

func (w *Walker) checkConstantOrder(group []*syntax.Assign) {
	if len(group) == 0 {
		return
	}
	words := make([]string, len(group))
	for i, n := range group {
		words[i] = strings.ReplaceAll(n.Targets[0].(*syntax.Name).ID, "_", " ")
	}
	if !slices.IsSorted(words) {
		w.report(group[0], ROU105)
	}
}

// ordered reports whether the rendered, lowercased values are sorted.
func (w *Walker) ordered(values []syntax.Node) bool {
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = strings.ToLower(w.render.render(v))
	}
	return slices.IsSorted(rendered)
}

func (w *Walker) visitImportFrom(n *syntax.ImportFrom) {
	if strings.Contains(n.Module, "tests") {
		w.report(n, ROU101)
	}
	if n.Level > 0 {
		w.report(n, ROU106)
	}
	if strings.Contains(n.Module, ".models.") {
		w.report(n, ROU108)
	}
}

// visitFunctionDef reports from-imports that follow other statements. A
// leading expression statement, usually the docstring, does not count.
func (w *Walker) visitFunctionDef(n *syntax.FunctionDef) {
	if n.Async {
		return
	}
	seenStatement := false
	for i, stmt := range n.Body {
		switch stmt.(type) {
		case *syntax.ExprStmt:
			if i == 0 {
				continue
			}
			seenStatement = true
		case *syntax.ImportFrom:
			if seenStatement {
				w.report(stmt, ROU107)
			}
		default:
			seenStatement = true
		}
	}
}

// isUpper follows Python's str.isupper: at least one cased character and
// no lowercase ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}
