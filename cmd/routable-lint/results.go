package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/routable/routable-lint/internal/output"
	"github.com/routable/routable-lint/internal/sarif"
	"github.com/routable/routable-lint/internal/store"
)

var (
	flagResultsLimit  int
	flagResultsFormat string
)

func init() {
	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect results saved with check --store",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored result IDs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runResultsList,
	}
	listCmd.Flags().IntVarP(&flagResultsLimit, "limit", "n", 20, "Maximum number of results (0 for all)")

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a stored result",
		Args:  cobra.ExactArgs(1),
		RunE:  runResultsShow,
	}
	showCmd.Flags().StringVarP(&flagResultsFormat, "format", "f", "text", "Output format: text, json, sarif, markdown")

	resultsCmd.AddCommand(listCmd, showCmd)
	rootCmd.AddCommand(resultsCmd)
}

func openStore(cmd *cobra.Command) (store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cmd.Context(), cfg.Store.Backend, cfg.Store.Dir)
}

func runResultsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ids, err := st.List(ctx)
	if err != nil {
		return err
	}
	if flagResultsLimit > 0 && len(ids) > flagResultsLimit {
		ids = ids[:flagResultsLimit]
	}

	w := cmd.OutOrStdout()
	for _, id := range ids {
		decision := "-"
		if v, err := st.ReadVerdict(ctx, id); err == nil {
			decision = v.Decision
		}
		doc, err := st.ReadSARIF(ctx, id)
		if err != nil {
			return fmt.Errorf("reading %s: %w", id, err)
		}
		fmt.Fprintf(w, "%s  %-6s  %d findings\n", id, decision, len(sarif.Results(doc)))
	}
	return nil
}

func runResultsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	id := args[0]
	doc, err := st.ReadSARIF(ctx, id)
	if err != nil {
		return fmt.Errorf("reading %s: %w", id, err)
	}
	verdict, err := st.ReadVerdict(ctx, id)
	if err != nil {
		return fmt.Errorf("reading verdict for %s: %w", id, err)
	}

	formatter, err := output.NewFormatter(flagResultsFormat, false)
	if err != nil {
		return err
	}
	data, err := formatter.Format(&output.AnalysisOutput{Verdict: verdict, SARIFLog: doc})
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
