package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/routable/routable-lint/internal/evaluator"
	"github.com/routable/routable-lint/internal/input"
	"github.com/routable/routable-lint/internal/metrics"
	"github.com/routable/routable-lint/internal/output"
	"github.com/routable/routable-lint/internal/sarif"
	"github.com/routable/routable-lint/internal/store"
)

var (
	flagDiff    string
	flagFormat  string
	flagOutput  string
	flagStore   bool
	flagGateDir string
	flagNoCache bool
	flagJobs    int
	flagStats   bool
	flagColor   bool
)

func init() {
	checkCmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check Python files and directories",
		Long: `Check runs every rule over the given files and directories (default: the
current directory), evaluates the result against the gate policy and prints
the findings. The exit status is 1 when the gate rejects.

With --diff, only the Python files a unified diff touches are checked and
findings are limited to the lines it adds.`,
		RunE: runCheck,
	}

	f := checkCmd.Flags()
	f.StringVar(&flagDiff, "diff", "", "Path to a unified diff (or - for stdin)")
	f.StringVarP(&flagFormat, "format", "f", "", "Output format: auto, text, json, sarif, pretty, markdown (default from config)")
	f.StringVarP(&flagOutput, "output", "o", "", "Write the report to this file instead of stdout")
	f.BoolVar(&flagStore, "store", false, "Persist the SARIF log and verdict to the result store")
	f.StringVar(&flagGateDir, "gate", "", "Directory of Rego gate policies (default from config)")
	f.BoolVar(&flagNoCache, "no-cache", false, "Check every file without consulting the findings cache")
	f.IntVarP(&flagJobs, "jobs", "j", 0, "Files checked in parallel (default from config, then GOMAXPROCS)")
	f.BoolVar(&flagStats, "stats", false, "Include timing and cache statistics in the report")
	f.BoolVar(&flagColor, "color", true, "Colorize pretty output")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.close(context.WithoutCancel(ctx))

	artifacts, kind, err := readInput(cmd.InOrStdin(), env.handler, args, flagDiff)
	if err != nil {
		return err
	}
	env.logger.Info("checking files", "count", len(artifacts), "scope", kind.String())

	collector := metrics.NewCollector()
	runner := env.newRunner(collector, !flagNoCache, flagJobs)
	report, err := runner.Run(ctx, artifacts)
	if err != nil {
		return fmt.Errorf("checking: %w", err)
	}
	doc := report.SARIF(env.catalogue, kind)

	regoDir := env.cfg.Gate.RegoDir
	if flagGateDir != "" {
		regoDir = flagGateDir
	}
	eval, err := evaluator.NewEvaluator(ctx, regoDir)
	if err != nil {
		return fmt.Errorf("loading gate policy: %w", err)
	}
	verdict, err := eval.Evaluate(ctx, doc)
	if err != nil {
		return fmt.Errorf("evaluating gate: %w", err)
	}

	if flagStore {
		id, err := persist(ctx, env, doc, verdict)
		if err != nil {
			return err
		}
		env.logger.Info("stored results", "id", id, "backend", env.cfg.Store.Backend)
	}

	result := &output.AnalysisOutput{
		Verdict:  verdict,
		SARIFLog: doc,
		Sources:  report.Sources(),
	}
	if flagStats {
		stats := collector.GetStats()
		result.Stats = &stats
	}

	if err := writeReport(cmd.OutOrStdout(), env.cfg.Output.Format, result); err != nil {
		return err
	}
	if verdict.Rejected() {
		return errGateRejected
	}
	return nil
}

// readInput resolves the check arguments to artifacts. A diff takes
// precedence over paths; no paths means the current directory.
func readInput(stdin io.Reader, h *input.Handler, paths []string, diffPath string) ([]input.Artifact, input.Kind, error) {
	if diffPath != "" {
		var (
			patch []byte
			err   error
		)
		if diffPath == "-" {
			patch, err = io.ReadAll(stdin)
		} else {
			patch, err = os.ReadFile(diffPath)
		}
		if err != nil {
			return nil, input.KindDiff, fmt.Errorf("reading diff: %w", err)
		}
		artifacts, err := h.ReadDiff(string(patch))
		if err != nil {
			return nil, input.KindDiff, err
		}
		return artifacts, input.KindDiff, nil
	}

	if len(paths) == 0 {
		paths = []string{"."}
	}
	artifacts, err := h.ReadPaths(paths)
	if err != nil {
		return nil, input.KindFile, fmt.Errorf("reading input: %w", err)
	}
	return artifacts, input.KindFile, nil
}

func persist(ctx context.Context, env *environment, doc *sarif.Log, verdict *store.Verdict) (string, error) {
	st, err := store.Open(ctx, env.cfg.Store.Backend, env.cfg.Store.Dir)
	if err != nil {
		return "", fmt.Errorf("opening result store: %w", err)
	}
	defer st.Close()

	id, err := st.WriteSARIF(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("storing SARIF: %w", err)
	}
	if err := st.WriteVerdict(ctx, id, verdict); err != nil {
		return "", fmt.Errorf("storing verdict: %w", err)
	}
	return id, nil
}

// writeReport formats result to --output, or to stdout. The auto format is
// resolved against stdout only; files always get plain output.
func writeReport(stdout io.Writer, configured string, result *output.AnalysisOutput) error {
	format := configured
	if flagFormat != "" {
		format = flagFormat
	}

	tty := false
	if flagOutput == "" {
		if f, ok := stdout.(*os.File); ok {
			tty = output.IsTerminal(f)
		}
	}
	format = output.ResolveFormat(format, tty)

	formatter, err := output.NewFormatter(format, flagColor && tty)
	if err != nil {
		return err
	}
	data, err := formatter.Format(result)
	if err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if flagOutput != "" {
		if err := os.WriteFile(flagOutput, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", flagOutput, err)
		}
		return nil
	}
	_, err = stdout.Write(data)
	return err
}
