package output

import (
	"strings"
	"testing"

	"github.com/routable/routable-lint/internal/sarif"
)

func TestTextFormatter_Format(t *testing.T) {
	out, err := (&TextFormatter{}).Format(testOutput())
	if err != nil {
		t.Fatalf("TextFormatter.Format() returned error: %v", err)
	}

	want := []string{
		"app/broken.py:1:5: E999 invalid syntax at 1:4",
		"app/constants.py:2:1: ROU105 Constants are not in order",
		"app/constants.py:7:1: ROU103 Object does not have attributes in order",
		"app/views.py:1:5: ROU103 Object does not have attributes in order",
		"app/views.py:3:1: ROU106 Relative imports are not allowed",
	}
	got := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(got), out)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTextFormatter_UnknownPosition(t *testing.T) {
	result := cleanOutput()
	result.SARIFLog = sarif.NewAssembler().AddSourceError("x.py", "unexpected EOF", 0, 0).Build()

	out, err := (&TextFormatter{}).Format(result)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "x.py: E999 unexpected EOF\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestTextFormatter_Empty(t *testing.T) {
	out, err := (&TextFormatter{}).Format(cleanOutput())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected no output for a clean run, got %q", out)
	}
}

func TestTextFormatter_NilLog(t *testing.T) {
	if _, err := (&TextFormatter{}).Format(&AnalysisOutput{}); err == nil {
		t.Fatal("expected error for nil SARIF log")
	}
}
