package main

import (
	"context"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/ingest"
	"github.com/logflow/procmine/pkg/ingest/sources"
	"github.com/logflow/procmine/pkg/metrics"
	"github.com/logflow/procmine/pkg/mining"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/perf"
	"github.com/logflow/procmine/pkg/progress"
	"github.com/logflow/procmine/pkg/telemetry"
	"github.com/logflow/procmine/pkg/trace"
)

// loaded is an event log turned into a trace store.
type loaded struct {
	source sources.Source
	store  *trace.Store
	result *ingest.Result
}

// loadOptions tunes load for one call.
type loadOptions struct {
	progress bool
}

// load resolves uri, counts its lines and extracts its traces. A failed
// extraction releases the partial store.
func (a *app) load(ctx context.Context, uri string, lo loadOptions) (*loaded, error) {
	ctx, span := telemetry.Start(ctx, "procmine.load", telemetry.Attr("source", uri))
	l, err := a.doLoad(ctx, uri, lo)
	telemetry.End(span, err)
	if err != nil {
		a.metrics.Counter(metrics.SourcesFailed, 1, map[string]string{metrics.TagSource: uri})
	}
	return l, err
}

func (a *app) doLoad(ctx context.Context, uri string, lo loadOptions) (*loaded, error) {
	src, err := sources.Resolve(ctx, uri, a.sourcesConfig())
	if err != nil {
		return nil, err
	}
	policy, err := ingest.ParseErrorPolicy(a.cfg.Ingest.ErrorPolicy)
	if err != nil {
		return nil, err
	}

	expected := 0
	if src.Format() == parser.FormatText {
		stop := a.profiler.StartPhase(perf.PhaseCount)
		expected, err = countSource(ctx, src)
		stop()
		if err != nil {
			return nil, err
		}
		telemetry.SetAttributes(ctx, telemetry.Attr("expected", expected))
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	records, size, err := parser.OpenSized(src.Format(), perf.NewProfiledReader(rc, a.profiler))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "failed to read source").
			WithContext("source", src.Location())
	}
	if size > 0 {
		expected = size
		telemetry.SetAttributes(ctx, telemetry.Attr("expected", expected))
	}

	var fn progress.Func
	done := func() {}
	if lo.progress {
		fn, done = a.progress("extracting")
	}
	opts := []ingest.Option{
		ingest.WithContext(ctx),
		ingest.WithLogger(a.logger.With("source", src.ID())),
		ingest.WithProgress(fn),
		ingest.WithCheckpoints(a.cfg.Ingest.Checkpoints),
		ingest.WithErrorPolicy(policy),
		ingest.WithMaxErrors(a.cfg.Ingest.MaxErrors),
		ingest.WithPrefixScale(a.cfg.Ingest.PrefixScale),
	}
	if w := a.quarantineWriter(src.Location()); w != nil {
		opts = append(opts, ingest.WithQuarantineWriter(w))
	}

	stop := a.profiler.StartPhase(perf.PhaseExtract)
	store, res, err := ingest.Extract(records, expected, opts...)
	stop()
	done()

	a.profiler.RecordRecords(int64(res.Records))
	metrics.RecordExtraction(a.metrics, res, map[string]string{
		metrics.TagSource: src.ID(),
		metrics.TagFormat: src.Format().String(),
	})
	telemetry.SetAttributes(ctx,
		telemetry.Attr("records", res.Records),
		telemetry.Attr("malformed", res.Malformed),
		telemetry.Attr("traces", res.Traces))

	if err != nil {
		store.Reset()
		return nil, err
	}
	a.logger.Info("source loaded",
		"source", src.Location(),
		"records", res.Records,
		"traces", res.Traces,
		"malformed", res.Malformed,
		"duration", res.Duration)
	return &loaded{source: src, store: store, result: res}, nil
}

// countSource runs the line-count pre-pass on a fresh reader.
func countSource(ctx context.Context, src sources.Source) (int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := parser.CountLines(rc)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeParseFailed, "line count failed").
			WithContext("source", src.Location())
	}
	return n, nil
}

// variants runs the variant analysis with a progress bar.
func (a *app) variants(ctx context.Context, l *loaded, showProgress bool) *mining.VariantReport {
	ctx, span := telemetry.Start(ctx, "procmine.variants")
	defer span.End()

	var fn progress.Func
	done := func() {}
	if showProgress {
		fn, done = a.progress("variants")
	}
	stop := a.profiler.StartPhase(perf.PhaseVariants)
	report := mining.AnalyzeVariants(l.store, fn,
		mining.WithVariantCheckpoints(a.cfg.Ingest.Checkpoints),
		mining.WithVariantStoreOptions(trace.WithPrefixScale(a.cfg.Ingest.PrefixScale)))
	stop()
	done()

	metrics.RecordVariants(a.metrics, report, map[string]string{metrics.TagSource: l.source.ID()})
	telemetry.SetAttributes(ctx, telemetry.Attr("variants", len(report.Variants)))
	return report
}
