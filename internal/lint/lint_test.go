package lint

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routable/routable-lint/internal/cache"
	"github.com/routable/routable-lint/internal/config"
	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/routable"
	"github.com/routable/routable-lint/internal/rules"
	"github.com/routable/routable-lint/internal/sarif"
)

func artifact(path, src string) input.Artifact {
	return input.Artifact{Path: path, Content: []byte(src), Kind: input.KindFile}
}

func findingCodes(findings []routable.Finding) []routable.Code {
	var out []routable.Code
	for _, f := range findings {
		out = append(out, f.Code)
	}
	return out
}

// countingCache wraps a MemoryCache and counts calls.
type countingCache struct {
	*cache.MemoryCache
	mu         sync.Mutex
	gets, puts int
	getErr     error
}

func (c *countingCache) Get(ctx context.Context, key cache.CacheKey) (*cache.CacheEntry, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.MemoryCache.Get(ctx, key)
}

func (c *countingCache) Put(ctx context.Context, e *cache.CacheEntry) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.MemoryCache.Put(ctx, e)
}

func TestRunner_Run(t *testing.T) {
	r := NewRunner(WithJobs(2))
	report, err := r.Run(context.Background(), []input.Artifact{
		artifact("app/views.py", "from . import x\n"),
		artifact("app/clean.py", "import os\n"),
		artifact("app/consts.py", "B = 1\nA = 2\n"),
	})
	require.NoError(t, err)
	require.Len(t, report.Files, 3)

	assert.Equal(t, "app/views.py", report.Files[0].Artifact.Path, "input order is kept")
	assert.Equal(t, []routable.Code{routable.ROU106}, findingCodes(report.Files[0].Findings))
	assert.Empty(t, report.Files[1].Findings)
	assert.Equal(t, []routable.Code{routable.ROU105}, findingCodes(report.Files[2].Findings))
	assert.Equal(t, 2, report.FindingCount())
}

func TestRunner_SourceError(t *testing.T) {
	r := NewRunner()
	report, err := r.Run(context.Background(), []input.Artifact{
		artifact("broken.py", "x = 1\ndef ():\n"),
		artifact("ok.py", "from .. import y\n"),
	})
	require.NoError(t, err, "source errors do not abort the run")

	broken := report.Files[0]
	assert.NotEmpty(t, broken.SourceError)
	assert.NotContains(t, broken.SourceError, "broken.py")
	assert.Equal(t, 2, broken.SourceLine)
	assert.Equal(t, []routable.Code{routable.ROU106}, findingCodes(report.Files[1].Findings))

	log := report.SARIF(nil, input.KindFile)
	results := sarif.Results(log)
	require.Len(t, results, 2)
	assert.Equal(t, sarif.SourceErrorRuleID, results[0].RuleID)
	assert.Equal(t, "error", results[0].Level)
	assert.Equal(t, 2, results[0].Region().StartLine)
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner().Run(ctx, []input.Artifact{artifact("a.py", "A = 1\n")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_CacheHit(t *testing.T) {
	c := &countingCache{MemoryCache: cache.NewMemoryCache()}
	collector := metrics.NewCollector()
	r := NewRunner(WithCache(c), WithRecorder(metrics.NewRecorder(collector)))
	files := []input.Artifact{
		artifact("a.py", "from . import x\n"),
		artifact("b.py", "def (:\n"),
	}

	first, err := r.Run(context.Background(), files)
	require.NoError(t, err)
	assert.False(t, first.Files[0].Cached)
	assert.Equal(t, 2, c.puts, "source errors are cached too")

	second, err := r.Run(context.Background(), files)
	require.NoError(t, err)
	assert.True(t, second.Files[0].Cached)
	assert.True(t, second.Files[1].Cached)
	assert.Equal(t, first.Files[0].Findings, second.Files[0].Findings)
	assert.Equal(t, first.Files[1].SourceError, second.Files[1].SourceError)
	assert.Equal(t, first.Files[1].SourceLine, second.Files[1].SourceLine)
	assert.Equal(t, 2, c.puts, "hits are not rewritten")

	stats := collector.GetStats()
	assert.Equal(t, int64(4), stats.TotalFiles)
	assert.Equal(t, int64(2), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
}

func TestRunner_ContentChangeMisses(t *testing.T) {
	c := &countingCache{MemoryCache: cache.NewMemoryCache()}
	r := NewRunner(WithCache(c))

	_, err := r.Run(context.Background(), []input.Artifact{artifact("a.py", "A = 1\n")})
	require.NoError(t, err)
	report, err := r.Run(context.Background(), []input.Artifact{artifact("a.py", "B = 1\nA = 1\n")})
	require.NoError(t, err)
	assert.False(t, report.Files[0].Cached)
	assert.Equal(t, []routable.Code{routable.ROU105}, findingCodes(report.Files[0].Findings))
}

func TestRunner_CacheErrorFallsBack(t *testing.T) {
	c := &countingCache{MemoryCache: cache.NewMemoryCache(), getErr: errors.New("disk on fire")}
	report, err := NewRunner(WithCache(c)).Run(context.Background(), []input.Artifact{artifact("a.py", "from . import x\n")})
	require.NoError(t, err)
	assert.Equal(t, []routable.Code{routable.ROU106}, findingCodes(report.Files[0].Findings))
}

func TestReport_DiffScope(t *testing.T) {
	a := artifact("a.py", "from . import x\nfrom . import y\n")
	a.Kind = input.KindDiff
	a.Changed = map[int]bool{2: true}

	report, err := NewRunner().Run(context.Background(), []input.Artifact{a})
	require.NoError(t, err)
	assert.Len(t, report.Files[0].Findings, 2)
	assert.Equal(t, 1, report.FindingCount())

	log := report.SARIF(nil, input.KindDiff)
	results := sarif.Results(log)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Region().StartLine)
	assert.Equal(t, "diff", log.Runs[0].Properties["routable/inputScope"])
}

func TestReport_SARIFUsesCatalogue(t *testing.T) {
	catalogue, err := rules.DefaultRules()
	require.NoError(t, err)

	report, err := NewRunner().Run(context.Background(), []input.Artifact{artifact("a.py", "from . import x\n")})
	require.NoError(t, err)

	log := report.SARIF(catalogue, input.KindFile)
	assert.Len(t, log.Runs[0].Tool.Driver.Rules, len(catalogue)+1)
	results := sarif.Results(log)
	require.Len(t, results, 1)
	assert.Equal(t, rules.Index(catalogue)["ROU106"].Level, results[0].Level)
	assert.Equal(t, []byte("from . import x\n"), report.Sources()["a.py"])
}

func TestNewCache(t *testing.T) {
	disabled := false
	assert.Nil(t, NewCache(config.CacheConfig{Enabled: &disabled}))

	local, ok := NewCache(config.CacheConfig{Dir: t.TempDir()}).(*cache.MultiTierCache)
	require.True(t, ok)
	assert.IsType(t, &cache.MemoryCache{}, local.Near())
	assert.IsType(t, &cache.LocalCache{}, local.Far())

	remote, ok := NewCache(config.CacheConfig{Dir: t.TempDir(), RemoteURL: "http://cache.internal"}).(*cache.MultiTierCache)
	require.True(t, ok)
	assert.IsType(t, &cache.MultiTierCache{}, remote.Near())
	assert.IsType(t, &cache.RemoteCache{}, remote.Far())
}
