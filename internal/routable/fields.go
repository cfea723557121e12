package routable

import (
	"strings"

	"github.com/routable/routable-lint/internal/syntax"
	"github.com/routable/routable-lint/internal/token"
)

// visitClassDef checks model field declarations in the class body:
// `name = models.XField(...)`. Files under a tests directory are skipped.
func (w *Walker) visitClassDef(n *syntax.ClassDef) {
	if strings.Contains(w.Filename, "/tests/") {
		return
	}
	for _, stmt := range n.Body {
		var value syntax.Node
		switch s := stmt.(type) {
		case *syntax.Assign:
			value = s.Value
		case *syntax.AnnAssign:
			value = s.Value
		}
		if call, ok := value.(*syntax.Call); ok {
			w.checkField(call)
		}
	}
}

func (w *Walker) checkField(call *syntax.Call) {
	name, pos, ok := calleeName(call.Func)
	if !ok || !isFieldConstructor(name) {
		return
	}

	kw := make(map[string]syntax.Node, len(call.Keywords))
	for _, k := range call.Keywords {
		if k.Arg != "" {
			kw[k.Arg] = k.Value
		}
	}
	def, hasDefault := kw["default"]
	if !hasDefault {
		return
	}

	dbDef, hasDBDefault := kw["db_default"]
	switch {
	case !hasDBDefault && !isTrue(kw["primary_key"]):
		w.findings = append(w.findings, newFinding(pos, ROU114))
	case hasDBDefault && w.defaultValue(def) != w.defaultValue(dbDef):
		w.findings = append(w.findings, newFinding(pos, ROU115))
	}
	if isTrue(kw["null"]) {
		w.findings = append(w.findings, newFinding(pos, ROU116))
	}
}

// calleeName returns the terminal name of a call target and where it starts:
// `Field` for `Field(...)` and `models.Field(...)` alike.
func calleeName(fn syntax.Node) (string, token.Position, bool) {
	switch fn := fn.(type) {
	case *syntax.Name:
		return fn.ID, fn.Start(), true
	case *syntax.Attribute:
		return fn.Attr, fn.AttrPos, true
	}
	return "", token.Position{}, false
}

func isFieldConstructor(name string) bool {
	return strings.HasSuffix(name, "Field") || name == "ForeignKey"
}

func isTrue(n syntax.Node) bool {
	c, ok := n.(*syntax.Constant)
	return ok && c.Kind == syntax.ConstBool && c.Value == "True"
}

// defaultValue renders a default so that a Python-side default and its
// database-side equivalent compare equal: `[]` and `list`, `{}` and `dict`,
// `Now()` and `timezone.now`.
func (w *Walker) defaultValue(n syntax.Node) string {
	switch v := n.(type) {
	case *syntax.List:
		if len(v.Elts) == 0 {
			return "list"
		}
	case *syntax.Dict:
		if len(v.Keys) == 0 {
			return "dict"
		}
	case *syntax.Call:
		if name, _, ok := calleeName(v.Func); ok && name == "Now" && len(v.Args) == 0 && len(v.Keywords) == 0 {
			return "timezone.now"
		}
	case *syntax.Constant:
		return v.Value
	}
	return w.render.render(n)
}
