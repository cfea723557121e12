package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/routable/routable-lint/internal/evaluator"
	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/lint"
	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/output"
	"github.com/routable/routable-lint/internal/watch"
)

var flagWatchFormat string

func init() {
	watchCmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-check Python files as they change",
		Long: `Watch checks the directory once, then re-checks each batch of changed
files until interrupted. Each batch is evaluated against the gate policy, but
a rejection does not stop watching.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
	watchCmd.Flags().StringVarP(&flagWatchFormat, "format", "f", "", "Output format: auto, text, pretty (default from config)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.close(context.WithoutCancel(ctx))

	w := cmd.OutOrStdout()
	formatter, err := watchFormatter(w, env.cfg.Output.Format)
	if err != nil {
		return err
	}
	runner := env.newRunner(metrics.NewCollector(), true, 0)
	eval, err := evaluator.NewEvaluator(ctx, env.cfg.Gate.RegoDir)
	if err != nil {
		return fmt.Errorf("loading gate policy: %w", err)
	}
	chk := &watchCheck{w: w, formatter: formatter, runner: runner, eval: eval, env: env}
	handler := input.NewHandler(
		input.WithExcludes(env.cfg.Exclude),
		input.WithRoot(root),
		input.WithLogger(env.logger),
	)

	artifacts, err := handler.ReadDirectory(root)
	if err != nil {
		return fmt.Errorf("reading %s: %w", root, err)
	}
	if err := chk.run(ctx, artifacts); err != nil {
		return err
	}

	watcher := watch.New(root,
		watch.WithDebounce(env.cfg.Watch.DebounceDuration()),
		watch.WithSkip(handler.Excluded),
		watch.WithLogger(env.logger),
	)
	return watcher.Run(ctx, func(ctx context.Context, paths []string) {
		artifacts, err := handler.ReadFiles(existing(paths))
		if err != nil {
			env.logger.Warn("reading changed files", "error", err)
			return
		}
		if len(artifacts) == 0 {
			return
		}
		if err := chk.run(ctx, artifacts); err != nil && ctx.Err() == nil {
			env.logger.Error("check failed", "error", err)
		}
	})
}

func watchFormatter(w io.Writer, configured string) (output.Formatter, error) {
	format := configured
	if flagWatchFormat != "" {
		format = flagWatchFormat
	}
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = output.IsTerminal(f)
	}
	format = output.ResolveFormat(format, tty)
	if format != "text" && format != "pretty" {
		return nil, fmt.Errorf("watch supports text and pretty output, got %q", format)
	}
	return output.NewFormatter(format, tty)
}

type watchCheck struct {
	w         io.Writer
	formatter output.Formatter
	runner    *lint.Runner
	eval      *evaluator.Evaluator
	env       *environment
}

func (c *watchCheck) run(ctx context.Context, artifacts []input.Artifact) error {
	report, err := c.runner.Run(ctx, artifacts)
	if err != nil {
		return err
	}
	doc := report.SARIF(c.env.catalogue, input.KindFile)
	verdict, err := c.eval.Evaluate(ctx, doc)
	if err != nil {
		return fmt.Errorf("evaluating gate: %w", err)
	}
	data, err := c.formatter.Format(&output.AnalysisOutput{
		Verdict:  verdict,
		SARIFLog: doc,
		Sources:  report.Sources(),
	})
	if err != nil {
		return err
	}
	if len(data) == 0 {
		_, err = fmt.Fprintf(c.w, "%d files clean\n", len(artifacts))
		return err
	}
	_, err = c.w.Write(data)
	return err
}

// existing drops paths that were removed before the batch was delivered.
func existing(paths []string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}
