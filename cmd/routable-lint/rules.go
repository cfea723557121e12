package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/routable/routable-lint/internal/output"
	"github.com/routable/routable-lint/internal/rules"
)

var (
	flagRulesCategory string
	flagRulesJSON     bool
	flagExplainWidth  int
)

var (
	ruleHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	ruleCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func init() {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "List and explain rule codes",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every rule with its level",
		Args:  cobra.NoArgs,
		RunE:  runRulesList,
	}
	listCmd.Flags().StringVar(&flagRulesCategory, "category", "", "Only list rules in this category")
	listCmd.Flags().BoolVar(&flagRulesJSON, "json", false, "Print the catalogue as JSON")

	explainCmd := &cobra.Command{
		Use:   "explain CODE",
		Short: "Describe a rule with examples",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesExplain,
	}
	explainCmd.Flags().IntVar(&flagExplainWidth, "width", 80, "Wrap width for rendered output")

	rulesCmd.AddCommand(listCmd, explainCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	catalogue, err := loadCatalogue()
	if err != nil {
		return err
	}
	if flagRulesCategory != "" {
		catalogue = rules.ByCategory(catalogue, rules.RuleCategory(flagRulesCategory))
	}

	w := cmd.OutOrStdout()
	if flagRulesJSON {
		data, err := json.MarshalIndent(catalogue, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}
	return writeRuleTable(w, catalogue)
}

func writeRuleTable(w io.Writer, catalogue []rules.Rule) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CODE", "LEVEL", "CATEGORY", "MESSAGE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return ruleHeaderStyle
			}
			return ruleCellStyle
		})
	for _, r := range catalogue {
		t.Row(r.ID, r.Level, string(r.Category), r.Message)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func runRulesExplain(cmd *cobra.Command, args []string) error {
	catalogue, err := loadCatalogue()
	if err != nil {
		return err
	}
	code := strings.ToUpper(strings.TrimSpace(args[0]))
	r, ok := rules.Index(catalogue)[code]
	if !ok {
		return fmt.Errorf("unknown rule code %q (run \"routable-lint rules list\")", args[0])
	}

	w := cmd.OutOrStdout()
	color := false
	if f, ok := w.(*os.File); ok {
		color = output.IsTerminal(f)
	}
	rendered, err := output.RenderMarkdown(output.RuleMarkdown(r), flagExplainWidth, color)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}
