package output

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"github.com/routable/routable-lint/internal/sarif"
)

// SARIFFormatter renders analysis output as a SARIF 2.1.0 JSON document
// enriched for GitHub Code Scanning (partial fingerprints, precision, and
// invocation metadata).
type SARIFFormatter struct {
	// WorkingDirectory overrides the invocation directory; os.Getwd when empty.
	WorkingDirectory string
}

// Format enriches a copy of the SARIF log and serializes it as indented JSON
// with a trailing newline.
func (f *SARIFFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil || result.SARIFLog == nil {
		return nil, fmt.Errorf("sarif formatter: SARIF log is required")
	}

	log := *result.SARIFLog
	log.Runs = make([]sarif.Run, len(result.SARIFLog.Runs))
	copy(log.Runs, result.SARIFLog.Runs)

	wd := f.WorkingDirectory
	if wd == "" {
		wd, _ = os.Getwd()
	}
	for i := range log.Runs {
		enrichRun(&log.Runs[i], wd)
	}

	data, err := json.MarshalIndent(&log, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sarif formatter: %w", err)
	}
	return append(data, '\n'), nil
}

func enrichRun(run *sarif.Run, wd string) {
	run.Invocations = []sarif.Invocation{{
		WorkingDirectory:    sarif.ArtifactLocation{URI: wd},
		ExecutionSuccessful: true,
	}}

	enriched := make([]sarif.Result, len(run.Results))
	for j, r := range run.Results {
		enriched[j] = enrichResult(r)
	}
	run.Results = enriched
}

// enrichResult adds a partial fingerprint and precision to a copy of r.
func enrichResult(r sarif.Result) sarif.Result {
	fingerprints := make(map[string]string, len(r.PartialFingerprints)+1)
	for k, v := range r.PartialFingerprints {
		fingerprints[k] = v
	}
	props := make(map[string]interface{}, len(r.Properties)+1)
	for k, v := range r.Properties {
		props[k] = v
	}

	fingerprintInput := fmt.Sprintf("%s|%s|%d|%s", r.RuleID, r.URI(), r.Region().StartLine, r.Message.Text)
	hash := sha256.Sum256([]byte(fingerprintInput))
	fingerprints["primaryLocationLineHash"] = fmt.Sprintf("%x", hash[:16])

	props["precision"] = precision(r.RuleID)

	r.PartialFingerprints = fingerprints
	r.Properties = props
	return r
}

// precision maps rules to GitHub Code Scanning precision values. Every
// detector is syntactic; source errors are certain.
func precision(ruleID string) string {
	if ruleID == sarif.SourceErrorRuleID {
		return "very-high"
	}
	return "high"
}
