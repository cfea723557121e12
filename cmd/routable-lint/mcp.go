package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/routable/routable-lint/internal/mcpserver"
	"github.com/routable/routable-lint/internal/metrics"
)

func init() {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the checks to MCP clients over stdio",
		Long: `Mcp starts a Model Context Protocol server on stdin and stdout with the
check_source, check_paths and explain_rule tools and the rule catalogue as a
resource. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := loadEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.close(context.WithoutCancel(ctx))

	runner := env.newRunner(metrics.NewCollector(), true, 0)
	return mcpserver.New(runner, env.handler, env.catalogue, env.logger).ServeStdio()
}
