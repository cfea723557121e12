package sarif

import (
	"encoding/json"
	"testing"
)

func TestSarifLog_MarshalJSON(t *testing.T) {
	log := NewLog("routable-lint", "1.0.0")
	log.Runs[0].Results = append(log.Runs[0].Results, Result{
		RuleID:  "ROU106",
		Level:   "error",
		Message: Message{Text: "ROU106 Relative imports are not allowed"},
		Locations: []Location{{
			PhysicalLocation: PhysicalLocation{
				ArtifactLocation: ArtifactLocation{URI: "app/views.py"},
				Region:           Region{StartLine: 3, StartColumn: 1},
			},
		}},
		Properties: map[string]interface{}{
			"routable/origin": "routable",
		},
	})

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		t.Fatal(err)
	}

	var parsed Log
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}

	if parsed.Schema != SchemaURI || parsed.Version != Version {
		t.Errorf("unexpected header %q %q", parsed.Schema, parsed.Version)
	}
	if len(parsed.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(parsed.Runs))
	}
	if len(parsed.Runs[0].Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(parsed.Runs[0].Results))
	}
	r := parsed.Runs[0].Results[0]
	if r.RuleID != "ROU106" {
		t.Errorf("expected ruleId 'ROU106', got %q", r.RuleID)
	}
	if r.URI() != "app/views.py" {
		t.Errorf("expected uri preserved, got %q", r.URI())
	}
	if r.Region().StartColumn != 1 {
		t.Errorf("expected startColumn 1, got %d", r.Region().StartColumn)
	}
	if r.Properties["routable/origin"] != "routable" {
		t.Errorf("expected origin preserved")
	}
}

func TestResult_NoLocations(t *testing.T) {
	var r Result
	if r.URI() != "" {
		t.Errorf("expected empty uri, got %q", r.URI())
	}
	if r.Region() != (Region{}) {
		t.Errorf("expected zero region, got %+v", r.Region())
	}
}

func TestNewLog_EmptyResultsMarshalAsArray(t *testing.T) {
	data, err := json.Marshal(NewLog("routable-lint", "1.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	run := raw["runs"].([]interface{})[0].(map[string]interface{})
	if _, ok := run["results"].([]interface{}); !ok {
		t.Errorf("expected results to be an array, got %T", run["results"])
	}
}
