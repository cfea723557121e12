package output

import (
	"strings"
	"testing"
)

func TestMarkdownFormatter_Format(t *testing.T) {
	out, err := (&MarkdownFormatter{}).Format(testOutput())
	if err != nil {
		t.Fatalf("MarkdownFormatter.Format() returned error: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"## routable-lint Summary",
		"**Decision:** :x: Reject | **Findings:** 5 | **Files:** 3",
		"| ROU103 | 2 |",
		"| E999 | 1 |",
		"<summary><code>app/views.py</code> (2)</summary>",
		"- :red_circle: L3:1 `ROU106` Relative imports are not allowed",
		"- :information_source: L2:1 `ROU105` Constants are not in order",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in markdown:\n%s", want, md)
		}
	}

	if strings.Index(md, "| E999 |") > strings.Index(md, "| ROU103 |") {
		t.Errorf("expected rule table sorted by code")
	}
}

func TestMarkdownFormatter_NoFindings(t *testing.T) {
	out, err := (&MarkdownFormatter{}).Format(cleanOutput())
	if err != nil {
		t.Fatal(err)
	}
	md := string(out)
	if !strings.Contains(md, ":white_check_mark: Pass") {
		t.Errorf("expected pass banner:\n%s", md)
	}
	if !strings.Contains(md, "No findings detected.") {
		t.Errorf("expected no-findings note:\n%s", md)
	}
	if strings.Contains(md, "<details>") {
		t.Errorf("expected no details sections:\n%s", md)
	}
}

func TestMarkdownFormatter_Errors(t *testing.T) {
	f := &MarkdownFormatter{}
	if _, err := f.Format(nil); err == nil {
		t.Error("expected error for nil result")
	}
	if _, err := f.Format(&AnalysisOutput{}); err == nil {
		t.Error("expected error for nil verdict")
	}
}
