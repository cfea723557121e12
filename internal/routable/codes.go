// Package routable is the rule engine: a tree walker and a set of token
// scanners that report style and policy violations for one Python file.
package routable

// Code is a stable rule identifier such as "ROU100".
type Code string

const (
	ROU100 Code = "ROU100"
	ROU101 Code = "ROU101"
	ROU102 Code = "ROU102"
	ROU103 Code = "ROU103"
	ROU104 Code = "ROU104"
	ROU105 Code = "ROU105"
	ROU106 Code = "ROU106"
	ROU107 Code = "ROU107"
	ROU108 Code = "ROU108"
	ROU109 Code = "ROU109"
	ROU110 Code = "ROU110"
	ROU111 Code = "ROU111"
	ROU112 Code = "ROU112"
	ROU113 Code = "ROU113"
	ROU114 Code = "ROU114"
	ROU115 Code = "ROU115"
	ROU116 Code = "ROU116"
)

// Rule pairs a code with its message. Messages describe what is wrong, not
// how to fix it.
type Rule struct {
	Code    Code
	Message string
}

var catalogue = [...]Rule{
	{ROU100, "Triple double quotes not used for docstring"},
	{ROU101, "Import from a tests directory"},
	{ROU102, "Strings should not span multiple lines except comments or docstrings"},
	{ROU103, "Object does not have attributes in order"},
	{ROU104, "Multiple blank lines are not allowed after a non-section comment"},
	{ROU105, "Constants are not in order"},
	{ROU106, "Relative imports are not allowed"},
	{ROU107, "Inline function import is not at top of statement"},
	{ROU108, "Import from model module instead of sub-packages"},
	{ROU109, "Disallow rename migrations"},
	{ROU110, "Disallow .save() with no update_fields"},
	{ROU111, "Disallow FeatureFlag creation in code"},
	{ROU112, "Tasks mush have *args, **kwargs"},
	{ROU113, "Tasks can not have priority in the signature"},
	{ROU114, "Field default exists but db_default does not"},
	{ROU115, "Field default and db_default do not match"},
	{ROU116, "Field has both default and null set"},
}

// Codes returns the rule catalogue in code order. The returned slice is a
// copy.
func Codes() []Rule {
	out := make([]Rule, len(catalogue))
	copy(out, catalogue[:])
	return out
}

// Lookup returns the rule registered under code.
func Lookup(code Code) (Rule, bool) {
	for _, r := range catalogue {
		if r.Code == code {
			return r, true
		}
	}
	return Rule{}, false
}

// Message returns the human-readable description of c, or "" for an unknown
// code.
func (c Code) Message() string {
	r, _ := Lookup(c)
	return r.Message
}
