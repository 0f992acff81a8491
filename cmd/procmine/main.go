// procmine - process mining over case/activity/timestamp event logs.
// Builds per-case traces from a log and reports statistics, start and end
// activities and trace variants.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	verbose     bool
	logLevel    string
	logFormat   string
	noProgress  bool
	noColor     bool
	prefixScale int64
	errorPolicy string
	maxErrors   int
	quarantine  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "procmine",
		Short: "procmine - Mine traces and variants from event logs",
		Long: `procmine reads an event log of "case activity timestamp" lines (or an
Excel worksheet with the same three columns), groups events into one trace
per case and reports trace statistics, start and end activities and the
distinct trace variants.

Sources may be local files (optionally .gz), s3://bucket/key, http(s) URLs
or "-" for standard input.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default: standard locations)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress details and metrics")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.Int64Var(&opts.prefixScale, "prefix-scale", 0, "Case id divisor of the prefix index")
	flags.StringVar(&opts.errorPolicy, "error-policy", "", "Malformed record policy (skip, strict, quarantine)")
	flags.IntVar(&opts.maxErrors, "max-errors", 0, "Abort after this many malformed records (0 = unlimited)")
	flags.StringVar(&opts.quarantine, "quarantine", "", "Write malformed records to this file as JSON lines")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newTracesCmd(opts),
		newVariantsCmd(opts),
		newActivitiesCmd(opts),
		newStatsCmd(opts),
		newBucketsCmd(opts),
		newCountCmd(opts),
		newWatchCmd(opts),
		newBatchCmd(opts),
		newGenerateCmd(),
	)
	return root
}
