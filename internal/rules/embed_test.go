package rules

import (
	"testing"

	"github.com/routable/routable-lint/internal/routable"
)

func TestDefaultRules_LoadsEmbedded(t *testing.T) {
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules() returned error: %v", err)
	}
	if len(rules) != len(routable.Codes()) {
		t.Fatalf("expected %d rules, got %d", len(routable.Codes()), len(rules))
	}
}

func TestDefaultRules_CoversEveryCode(t *testing.T) {
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules() returned error: %v", err)
	}
	idx := Index(rules)
	for _, code := range routable.Codes() {
		r, ok := idx[string(code.Code)]
		if !ok {
			t.Errorf("no catalogue entry for %s", code.Code)
			continue
		}
		if r.Name == "" || r.Category == "" || r.Detector == "" {
			t.Errorf("%s: name, category and detector are required in the catalogue", r.ID)
		}
	}
}

func TestDefaultRules_HasAllDetectors(t *testing.T) {
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules() returned error: %v", err)
	}
	if len(ByDetector(rules, DetectorTree)) == 0 || len(ByDetector(rules, DetectorTokens)) == 0 {
		t.Error("expected rules from both detectors")
	}
}
