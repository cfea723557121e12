package routable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// results runs the engine over src and returns the findings as a set of
// "line:col: CODE message" strings.
func results(t *testing.T, src string) map[string]bool {
	t.Helper()
	return resultsFor(t, "example.py", src)
}

func resultsFor(t *testing.T, filename, src string) map[string]bool {
	t.Helper()
	findings, err := Check(context.Background(), filename, []byte(src))
	require.NoError(t, err)

	out := make(map[string]bool, len(findings))
	for _, f := range findings {
		out[f.String()] = true
	}
	return out
}

func set(items ...string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}
