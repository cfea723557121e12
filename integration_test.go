package routablelint_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/routable/routable-lint/internal/cache"
	"github.com/routable/routable-lint/internal/config"
	"github.com/routable/routable-lint/internal/evaluator"
	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/lint"
	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/output"
	"github.com/routable/routable-lint/internal/rules"
	"github.com/routable/routable-lint/internal/sarif"
	"github.com/routable/routable-lint/internal/store"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFullPipeline(t *testing.T) {
	ctx := context.Background()

	// 1. Config and rules
	cfg := config.SystemDefaults()
	catalogue, err := rules.DefaultRules()
	if err != nil {
		t.Fatal(err)
	}

	// 2. Input
	dir := writeTree(t, map[string]string{
		"app/views.py":    "from ..constants import FOO\nx = {\"b\": 1, \"a\": 2}\n",
		"app/clean.py":    "x = 1\n",
		"app/broken.py":   "def (:\n",
		"venv/ignored.py": "from . import nope\n",
	})
	handler := input.NewHandler(input.WithExcludes(cfg.Exclude))
	artifacts, err := handler.ReadDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(artifacts))
	}

	// 3. Check, twice, so the second run is served from the cache
	collector := metrics.NewCollector()
	runner := lint.NewRunner(
		lint.WithCache(cache.NewMemoryCache()),
		lint.WithRecorder(metrics.NewRecorder(collector)),
		lint.WithJobs(2),
	)
	if _, err := runner.Run(ctx, artifacts); err != nil {
		t.Fatal(err)
	}
	report, err := runner.Run(ctx, artifacts)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range report.Files {
		if !f.Cached {
			t.Errorf("expected %s to be cached on the second run", f.Artifact.Path)
		}
	}
	if stats := collector.GetStats(); stats.CacheHits != 3 {
		t.Errorf("expected 3 cache hits, got %d", stats.CacheHits)
	}

	// 4. Assemble SARIF
	doc := report.SARIF(catalogue, input.KindFile)
	results := sarif.Results(doc)
	var ids []string
	for _, r := range results {
		ids = append(ids, r.RuleID)
	}
	if got := strings.Join(ids, ","); got != "E999,ROU106,ROU103" {
		t.Fatalf("unexpected results %s", got)
	}

	// 5. Store
	st, err := store.NewSQLiteStore(ctx, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	id, err := st.WriteSARIF(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}

	// 6. Evaluate
	eval, err := evaluator.NewEvaluator(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	verdict, err := eval.Evaluate(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if !verdict.Rejected() {
		t.Errorf("expected reject, got %q", verdict.Decision)
	}
	if verdict.Counts["error"] != 2 || verdict.Counts["warning"] != 1 {
		t.Errorf("unexpected counts %v", verdict.Counts)
	}

	// 7. Store verdict and read it back
	if err := st.WriteVerdict(ctx, id, verdict); err != nil {
		t.Fatal(err)
	}
	loaded, err := st.ReadVerdict(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Decision != store.DecisionReject {
		t.Errorf("expected stored verdict %q, got %q", store.DecisionReject, loaded.Decision)
	}

	// 8. Format
	out, err := (&output.TextFormatter{}).Format(&output.AnalysisOutput{Verdict: verdict, SARIFLog: doc})
	if err != nil {
		t.Fatal(err)
	}
	views := filepath.ToSlash(filepath.Join(dir, "app", "views.py"))
	for _, want := range []string{
		views + ":1:1: ROU106 Relative imports are not allowed",
		views + ":2:5: ROU103 Object does not have attributes in order",
	} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
