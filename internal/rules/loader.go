package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadRules returns the embedded catalogue with overrides from userDir and
// then projectDir applied. Override files use the catalogue format; only the
// fields they set replace the embedded values.
func LoadRules(userDir, projectDir string) ([]Rule, error) {
	defaults, err := DefaultRules()
	if err != nil {
		return nil, fmt.Errorf("loading default rules: %w", err)
	}

	merged := indexByID(defaults)

	for _, dir := range []string{userDir, projectDir} {
		overrides, err := loadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("loading rule overrides from %s: %w", dir, err)
		}
		for _, o := range overrides {
			merged[o.ID] = overlay(merged[o.ID], o)
		}
	}

	result := make([]Rule, 0, len(merged))
	for _, r := range merged {
		result = append(result, r)
	}
	return Sorted(result), nil
}

func overlay(base, o Rule) Rule {
	base.ID = o.ID
	base.Level = o.Level
	base.Message = o.Message
	if o.Name != "" {
		base.Name = o.Name
	}
	if o.Category != "" {
		base.Category = o.Category
	}
	if o.Detector != "" {
		base.Detector = o.Detector
	}
	if o.Explanation != "" {
		base.Explanation = o.Explanation
	}
	if o.Remediation != "" {
		base.Remediation = o.Remediation
	}
	if o.Bad != "" {
		base.Bad = o.Bad
	}
	if o.Good != "" {
		base.Good = o.Good
	}
	if len(o.References) > 0 {
		base.References = o.References
	}
	return base
}

func loadDir(dir string) ([]Rule, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var allRules []Rule
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		rf, err := ParseRuleFile(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}

		allRules = append(allRules, rf.Rules...)
	}
	return allRules, nil
}

func indexByID(rules []Rule) map[string]Rule {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		m[r.ID] = r
	}
	return m
}
