package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/routable/routable-lint/internal/output"
	"github.com/routable/routable-lint/internal/routable"
)

var (
	// Version information injected by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errGateRejected makes the process exit 1 without printing an error; the
// formatter output already explains the rejection.
var errGateRejected = errors.New("gate rejected")

var (
	flagConfigDir string
	flagQuiet     bool
	flagVerbose   bool
	flagDebug     bool
	flagLogJSON   bool
)

var rootCmd = &cobra.Command{
	Use:           "routable-lint",
	Short:         "Python lint rules for the Routable codebase",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := output.SetupLogger(output.LogOptions{
			Quiet:   flagQuiet,
			Verbose: flagVerbose,
			Debug:   flagDebug,
			JSON:    flagLogJSON,
		}, cmd.ErrOrStderr())
		slog.SetDefault(logger)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "routable-lint %s\n", version)
		fmt.Fprintf(w, "  rules: %s %s\n", routable.Origin, routable.Version)
		fmt.Fprintf(w, "  commit: %s\n", commit)
		fmt.Fprintf(w, "  built at: %s\n", date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigDir, "config-dir", ".routable", "Project directory holding config.yaml, rules/ and rego/")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress all log output")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log progress at info level")
	pf.BoolVar(&flagDebug, "debug", false, "Log at debug level")
	pf.BoolVar(&flagLogJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errGateRejected) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
