package main

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/ingest/sources"
	"github.com/logflow/procmine/pkg/mining"
	"github.com/logflow/procmine/pkg/tui"
)

// batchResult is the outcome of one log in a batch.
type batchResult struct {
	Source   string
	Records  int
	Traces   int
	Events   int
	Variants int
	AvgLen   float64
	Duration time.Duration
	Err      error
}

func newBatchCmd(opts *globalOptions) *cobra.Command {
	var workers int
	var failFast bool
	cmd := &cobra.Command{
		Use:   "batch <source>...",
		Short: "Analyze many event logs in parallel",
		Long: `Analyze several event logs concurrently. Each log gets its own trace
store; glob patterns are expanded.

Examples:
  procmine batch 'logs/*.txt'
  procmine batch --workers 8 a.txt b.txt.gz s3://logs/c.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			uris, err := sources.Expand(args)
			if err != nil {
				return err
			}
			results, err := a.batch(ctx, uris, workers, failFast)
			if werr := writeBatch(a, results); werr != nil && err == nil {
				err = werr
			}
			return err
		}),
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of logs analyzed at once")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failed log")
	return cmd
}

// batch analyzes uris with at most workers concurrent extractions. Results
// keep the order of uris.
func (a *app) batch(ctx context.Context, uris []string, workers int, failFast bool) ([]batchResult, error) {
	results := make([]batchResult, len(uris))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, uri := range uris {
		g.Go(func() error {
			results[i] = a.analyzeOne(gctx, uri)
			if results[i].Err != nil {
				failed.Add(1)
				a.logger.Warn("batch source failed", "source", uri, "error", results[i].Err)
				if failFast {
					return results[i].Err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if n := failed.Load(); n > 0 {
		return results, errors.New(errors.CodeSourceUnavailable, fmt.Sprintf("%d of %d logs failed", n, len(uris)))
	}
	return results, nil
}

func (a *app) analyzeOne(ctx context.Context, uri string) batchResult {
	start := time.Now()
	r := batchResult{Source: uri}

	if err := ctx.Err(); err != nil {
		r.Err = errors.Wrap(err, errors.CodeContextCanceled, "batch canceled")
		return r
	}

	l, err := a.load(ctx, uri, loadOptions{})
	if err != nil {
		r.Err = err
		return r
	}
	defer l.store.Reset()

	r.Records = l.result.Records
	r.Traces = l.store.Len()
	r.Events = l.store.Events()
	if avg, err := mining.AverageLength(l.store); err == nil {
		r.AvgLen = avg
	}
	r.Variants = len(a.variants(ctx, l, false).Variants)
	r.Duration = time.Since(start)
	return r
}

func writeBatch(a *app, results []batchResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			rows = append(rows, []string{r.Source, "-", "-", "-", "-", "-", "error " + string(errors.GetCode(r.Err))})
			continue
		}
		rows = append(rows, []string{
			r.Source,
			tui.FormatCount(r.Records),
			tui.FormatCount(r.Traces),
			tui.FormatCount(r.Events),
			strconv.FormatFloat(r.AvgLen, 'f', 2, 64),
			tui.FormatCount(r.Variants),
			tui.FormatDuration(r.Duration),
		})
	}
	return tui.WriteTable(a.out, []string{"Source", "Records", "Traces", "Events", "Avg length", "Variants", "Time"}, rows)
}
