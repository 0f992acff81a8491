package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/testing/generators"
)

func newGenerateCmd() *cobra.Command {
	var (
		output      string
		cases       int
		seed        int64
		errorRate   float64
		clusterSize int
		open        int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic event log",
		Long: `Write a synthetic order-to-cash event log with clustered case ids and
interleaved cases, for testing and benchmarking.

Examples:
  procmine generate -o events.txt --cases 100000
  procmine generate --cases 1000 --error-rate 0.01 | procmine analyze -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return errors.Wrap(err, errors.CodeFilePermission, "failed to create output").WithContext("path", output)
				}
				defer f.Close()
				w = f
			}

			g := generators.NewEventLogGenerator(seed)
			g.ErrorRate = errorRate
			g.ClusterSize = clusterSize
			g.Open = open

			st, err := g.Generate(w, cases)
			if err != nil {
				return errors.Wrap(err, errors.CodeUnknown, "generate failed")
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d cases, %d events, %d malformed lines to %s\n",
					st.Cases, st.Events, st.Malformed, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().IntVar(&cases, "cases", 1000, "Number of cases")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().Float64Var(&errorRate, "error-rate", 0, "Probability of a malformed line per event")
	cmd.Flags().IntVar(&clusterSize, "cluster-size", 1000, "Consecutive case ids per cluster")
	cmd.Flags().IntVar(&open, "open", 8, "Cases in flight at once")
	return cmd
}
