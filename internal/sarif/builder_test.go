package sarif

import (
	"testing"

	"github.com/routable/routable-lint/internal/routable"
	"github.com/routable/routable-lint/internal/rules"
)

func testRules() []rules.Rule {
	return []rules.Rule{
		{
			ID:          "ROU106",
			Name:        "relative-import",
			Level:       "error",
			Message:     "Relative imports are not allowed",
			Remediation: "Import using the absolute module path.",
		},
		{
			ID:          "ROU103",
			Name:        "unordered-collection",
			Level:       "note",
			Message:     "Object does not have attributes in order",
			Explanation: "Keys are sorted.",
			References:  []string{"https://example.com/rou103"},
		},
	}
}

func TestAssembler_Build(t *testing.T) {
	log := NewAssembler().
		WithRules(testRules()).
		AddFindings("b.py", []routable.Finding{
			{Line: 2, Column: 0, Code: "ROU106", Message: "Relative imports are not allowed"},
		}).
		AddFindings("a.py", []routable.Finding{
			{Line: 5, Column: 4, Code: "ROU103", Message: "Object does not have attributes in order"},
			{Line: 1, Column: 0, Code: "ROU105", Message: "Constants are not in order"},
		}).
		WithInputScope("files").
		Build()

	if len(log.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(log.Runs))
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != ToolName {
		t.Errorf("expected tool name %q, got %q", ToolName, run.Tool.Driver.Name)
	}
	if run.Tool.Driver.Version != routable.Version {
		t.Errorf("expected version %q, got %q", routable.Version, run.Tool.Driver.Version)
	}
	if len(run.Tool.Driver.Rules) != 3 {
		t.Errorf("expected 2 rules plus E999, got %d", len(run.Tool.Driver.Rules))
	}
	if run.Properties["routable/inputScope"] != "files" {
		t.Errorf("expected inputScope 'files', got %v", run.Properties["routable/inputScope"])
	}

	if len(run.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(run.Results))
	}
	wantOrder := []string{"ROU105", "ROU103", "ROU106"}
	for i, want := range wantOrder {
		if run.Results[i].RuleID != want {
			t.Errorf("result %d: expected %s, got %s", i, want, run.Results[i].RuleID)
		}
	}

	r103 := run.Results[1]
	if r103.Level != "note" {
		t.Errorf("expected catalogue level 'note', got %q", r103.Level)
	}
	if r103.Message.Text != "ROU103 Object does not have attributes in order" {
		t.Errorf("unexpected message %q", r103.Message.Text)
	}
	if got := r103.Region(); got.StartLine != 5 || got.StartColumn != 5 {
		t.Errorf("expected 5:5, got %d:%d", got.StartLine, got.StartColumn)
	}
	if run.Results[0].Level != "warning" {
		t.Errorf("expected uncatalogued code to default to warning, got %q", run.Results[0].Level)
	}
}

func TestAssembler_KeepsDuplicates(t *testing.T) {
	f := routable.Finding{Line: 1, Column: 0, Code: "ROU106", Message: "Relative imports are not allowed"}
	log := NewAssembler().AddFindings("a.py", []routable.Finding{f, f}).Build()
	if len(log.Runs[0].Results) != 2 {
		t.Errorf("expected duplicates kept, got %d results", len(log.Runs[0].Results))
	}
	if got := log.Runs[0].Results[0].Properties["routable/origin"]; got != routable.Origin {
		t.Errorf("expected origin %q, got %v", routable.Origin, got)
	}
}

func TestAssembler_SourceError(t *testing.T) {
	log := NewAssembler().
		AddSourceError("broken.py", "invalid syntax at 2:4", 2, 4).
		AddSourceError("unknown.py", "unexpected EOF", 0, 0).
		Build()

	results := log.Runs[0].Results
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	r := results[0]
	if r.RuleID != SourceErrorRuleID || r.Level != "error" {
		t.Errorf("unexpected source error result %+v", r)
	}
	if got := r.Region(); got.StartLine != 2 || got.StartColumn != 5 {
		t.Errorf("expected 2:5, got %d:%d", got.StartLine, got.StartColumn)
	}
	if results[1].Region() != (Region{}) {
		t.Errorf("expected empty region for unknown position, got %+v", results[1].Region())
	}
}

func TestAssembler_NoRulesOmitsDescriptors(t *testing.T) {
	log := NewAssembler().Build()
	if log.Runs[0].Tool.Driver.Rules != nil {
		t.Errorf("expected no descriptors")
	}
	if log.Runs[0].Results == nil {
		t.Errorf("expected non-nil results")
	}
	if log.Runs[0].Properties != nil {
		t.Errorf("expected no properties, got %v", log.Runs[0].Properties)
	}
}

func TestDescriptor(t *testing.T) {
	d := Descriptor(testRules()[1])
	if d.ID != "ROU103" || d.Name != "unordered-collection" {
		t.Errorf("unexpected descriptor %+v", d)
	}
	if d.FullDescription == nil || d.FullDescription.Text != "Keys are sorted." {
		t.Errorf("expected full description from explanation")
	}
	if d.Help != nil {
		t.Errorf("expected no help without remediation")
	}
	if d.HelpURI != "https://example.com/rou103" {
		t.Errorf("unexpected help uri %q", d.HelpURI)
	}
	if d.DefaultConfig.Level != "note" {
		t.Errorf("unexpected default level %q", d.DefaultConfig.Level)
	}
}

func TestCountByLevel(t *testing.T) {
	log := NewAssembler().
		WithRules(testRules()).
		AddFindings("a.py", []routable.Finding{
			{Line: 1, Code: "ROU106", Message: "Relative imports are not allowed"},
			{Line: 2, Code: "ROU106", Message: "Relative imports are not allowed"},
			{Line: 3, Code: "ROU103", Message: "Object does not have attributes in order"},
		}).
		Build()

	counts := CountByLevel(Results(log))
	if counts["error"] != 2 || counts["note"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}
