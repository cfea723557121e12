// Package evaluator turns a SARIF log into a pass or reject verdict using a
// Rego policy.
package evaluator

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/routable/routable-lint/internal/sarif"
	"github.com/routable/routable-lint/internal/store"
)

//go:embed default.rego
var defaultPolicy string

// Query is the rule every policy must define. It evaluates to "pass" or
// "reject".
const Query = "data.routable.gate.decision"

type Evaluator struct {
	query rego.PreparedEvalQuery
}

// NewEvaluator creates an evaluator. If policyDir is empty or holds no .rego
// files, the embedded default policy is used: any result rejects. Otherwise
// every .rego file in policyDir is loaded and the default is not.
func NewEvaluator(ctx context.Context, policyDir string) (*Evaluator, error) {
	custom, err := loadPolicies(policyDir)
	if err != nil {
		return nil, err
	}

	opts := []func(*rego.Rego){rego.Query(Query)}
	if len(custom) == 0 {
		opts = append(opts, rego.Module("default.rego", defaultPolicy))
	}
	for _, name := range sortedKeys(custom) {
		opts = append(opts, rego.Module(name, custom[name]))
	}

	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing rego query: %w", err)
	}

	return &Evaluator{query: query}, nil
}

func loadPolicies(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading policy dir: %w", err)
	}
	policies := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rego") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		policies[e.Name()] = string(data)
	}
	return policies, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Evaluator) Evaluate(ctx context.Context, log *sarif.Log) (*store.Verdict, error) {
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, err
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating rego: %w", err)
	}

	decision := store.DecisionPass
	if len(results) > 0 && len(results[0].Expressions) > 0 {
		d, ok := results[0].Expressions[0].Value.(string)
		if !ok || (d != store.DecisionPass && d != store.DecisionReject) {
			return nil, fmt.Errorf("policy decision must be %q or %q, got %v",
				store.DecisionPass, store.DecisionReject, results[0].Expressions[0].Value)
		}
		decision = d
	}

	all := sarif.Results(log)
	var relevant []sarif.Result
	if decision == store.DecisionReject {
		relevant = all
	}

	return &store.Verdict{
		Decision:         decision,
		Reason:           fmt.Sprintf("Decision: %s based on %d findings", decision, len(all)),
		Counts:           sarif.CountByLevel(all),
		RelevantFindings: relevant,
	}, nil
}
