package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/ingest/sources"
	"github.com/logflow/procmine/pkg/mining"
	"github.com/logflow/procmine/pkg/perf"
	"github.com/logflow/procmine/pkg/tui"
)

// coverageRatio is the trace share reported by "variants covering N%".
const coverageRatio = 0.8

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <source>",
		Short: "Extract traces and report statistics, activities and variants",
		Long: `Extract traces from an event log and print a full report: extraction
counts, trace length statistics, start and end activities and variants.

Examples:
  procmine analyze events.txt
  procmine analyze events.txt.gz --error-policy strict
  procmine analyze s3://logs/2024/events.txt
  cat events.txt | procmine analyze -`,
		Args: cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			return a.analyze(ctx, args[0], true)
		}),
	}
}

// analyze prints the full report for one source.
func (a *app) analyze(ctx context.Context, uri string, showProgress bool) error {
	l, err := a.load(ctx, uri, loadOptions{progress: showProgress})
	if err != nil {
		return err
	}
	defer l.store.Reset()

	p := a.printer
	p.Header("procmine", l.source.Location())

	res := l.result
	p.Section("Extraction")
	p.KeyValue("Records", tui.FormatCount(res.Records))
	p.KeyValue("Malformed", tui.FormatCount(res.Malformed))
	if res.Skipped > 0 {
		p.KeyValue("Skipped", tui.FormatCount(res.Skipped))
	}
	p.KeyValue("Success rate", fmt.Sprintf("%.1f%%", res.SuccessRate()))
	p.KeyValue("Duration", tui.FormatDuration(res.Duration))
	p.KeyValue("Rate", tui.FormatRate(res.Throughput(), "records"))

	sum, err := mining.Summarize(l.store)
	if errors.IsCode(err, errors.CodeEmptyStore) {
		p.Warn("No traces in log")
		return nil
	}
	if err != nil {
		return err
	}

	stop := a.profiler.StartPhase(perf.PhaseRender)
	p.Section("Traces")
	p.Summary(sum)

	p.Section("Activities")
	tui.WriteActivitySet(p.Writer(), "  Start activities", mining.StartActivities(l.store))
	tui.WriteActivitySet(p.Writer(), "  End activities", mining.EndActivities(l.store))
	stop()

	report := a.variants(ctx, l, showProgress)
	p.Section("Variants")
	p.KeyValue("Distinct variants", tui.FormatCount(len(report.Variants)))
	p.KeyValue(fmt.Sprintf("Covering %.0f%%", coverageRatio*100), tui.FormatCount(report.Covering(coverageRatio)))
	if top := report.Variants; len(top) > 0 {
		p.KeyValue("Most frequent", fmt.Sprintf("%s (%.1f%%)", top[0], report.Share(top[0])*100))
	}

	if a.opts.verbose {
		p.Section("Profile")
		fmt.Fprint(p.Writer(), a.profiler.Report())
	}
	fmt.Fprintln(p.Writer())
	p.Success("Done")
	return nil
}

func newTracesCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "traces <source>",
		Short: "List every trace with its activities",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			l, err := a.load(ctx, args[0], loadOptions{progress: true})
			if err != nil {
				return err
			}
			defer l.store.Reset()

			if limit < 0 {
				limit = a.cfg.Display.MaxTraces
			}
			return tui.WriteTraces(a.out, l.store, limit)
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", -1, "Show at most this many traces (0 = all, default from config)")
	return cmd
}

func newVariantsCmd(opts *globalOptions) *cobra.Command {
	var top int
	var asStore bool
	cmd := &cobra.Command{
		Use:   "variants <source>",
		Short: "List distinct trace variants, most frequent first",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			l, err := a.load(ctx, args[0], loadOptions{progress: true})
			if err != nil {
				return err
			}
			defer l.store.Reset()

			report := a.variants(ctx, l, true)
			if asStore {
				return tui.WriteTraces(a.out, report.Store, top)
			}
			return tui.WriteVariants(a.out, report, top)
		}),
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "Show at most this many variants (0 = all)")
	cmd.Flags().BoolVar(&asStore, "traces", false, "Print the variant store as a trace listing")
	return cmd
}

func newActivitiesCmd(opts *globalOptions) *cobra.Command {
	var end bool
	cmd := &cobra.Command{
		Use:   "activities <source>",
		Short: "Print the start (or end) activities of all traces",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			l, err := a.load(ctx, args[0], loadOptions{progress: true})
			if err != nil {
				return err
			}
			defer l.store.Reset()

			if end {
				return tui.WriteActivitySet(a.out, "End activities", mining.EndActivities(l.store))
			}
			return tui.WriteActivitySet(a.out, "Start activities", mining.StartActivities(l.store))
		}),
	}
	cmd.Flags().BoolVar(&end, "end", false, "Print end activities instead of start activities")
	return cmd
}

// statsOutput is the JSON form of the stats command.
type statsOutput struct {
	Source     string         `json:"source"`
	RunID      string         `json:"run_id"`
	Records    int            `json:"records"`
	Malformed  int            `json:"malformed"`
	Skipped    int            `json:"skipped"`
	Summary    mining.Summary `json:"summary"`
	Variants   int            `json:"variants"`
	DurationMS int64          `json:"duration_ms"`
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats <source>",
		Short: "Print trace statistics",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			l, err := a.load(ctx, args[0], loadOptions{progress: !asJSON})
			if err != nil {
				return err
			}
			defer l.store.Reset()

			sum, err := mining.Summarize(l.store)
			if err != nil {
				return err
			}
			if !asJSON {
				a.printer.Summary(sum)
				return nil
			}

			report := a.variants(ctx, l, false)
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(statsOutput{
				Source:     l.source.Location(),
				RunID:      a.runID,
				Records:    l.result.Records,
				Malformed:  l.result.Malformed,
				Skipped:    l.result.Skipped,
				Summary:    sum,
				Variants:   len(report.Variants),
				DurationMS: l.result.Duration.Milliseconds(),
			})
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newBucketsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "buckets <source>",
		Short: "Print the prefix index of the trace store",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			l, err := a.load(ctx, args[0], loadOptions{progress: true})
			if err != nil {
				return err
			}
			defer l.store.Reset()

			if err := l.store.Verify(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Traces: %s in %d buckets (scale %d)\n",
				tui.FormatCount(l.store.Len()), len(l.store.Buckets()), l.store.PrefixScale())
			return tui.WriteBuckets(a.out, l.store)
		}),
	}
}

func newCountCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count <source>",
		Short: "Count the lines of an event log",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			src, err := sources.Resolve(ctx, args[0], a.sourcesConfig())
			if err != nil {
				return err
			}
			n, err := countSource(ctx, src)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		}),
	}
}
