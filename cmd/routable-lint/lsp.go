package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/lint"
	"github.com/routable/routable-lint/internal/lsp"
	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/rules"
	"github.com/routable/routable-lint/internal/sarif"
)

func init() {
	lspCmd := &cobra.Command{
		Use:   "lsp",
		Short: "Publish findings to editors as LSP diagnostics over stdio",
		Args:  cobra.NoArgs,
		RunE:  runLSP,
	}
	rootCmd.AddCommand(lspCmd)
}

func runLSP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.close(context.WithoutCancel(ctx))

	root, err := os.Getwd()
	if err != nil {
		return err
	}
	runner := env.newRunner(metrics.NewCollector(), true, 1)

	srv := lsp.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(), documentChecker(runner, env.catalogue),
		lsp.WithDebounce(env.cfg.Watch.DebounceDuration()),
		lsp.WithSkip(func(path string) bool { return excludedPath(env.handler, root, path) }),
		lsp.WithLogger(env.logger),
	)
	env.logger.Info("serving LSP over stdio", "root", root)
	return srv.Run(ctx)
}

// documentChecker checks unsaved editor buffers through the runner, so they
// share its cache and metrics.
func documentChecker(runner *lint.Runner, catalogue []rules.Rule) lsp.CheckFunc {
	return func(ctx context.Context, path string, content []byte) ([]sarif.Result, error) {
		report, err := runner.Run(ctx, []input.Artifact{{Path: path, Content: content, Kind: input.KindFile}})
		if err != nil {
			return nil, err
		}
		return sarif.Results(report.SARIF(catalogue, input.KindFile)), nil
	}
}

// excludedPath reports whether path, or any directory between root and it,
// matches an exclude glob. Paths outside root are never excluded.
func excludedPath(h *input.Handler, root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	for p := rel; p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		if h.Excluded(p) {
			return true
		}
	}
	return false
}
