// Package ingest builds a trace store from a stream of event records.
package ingest

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/logflow/procmine/internal/model"
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/progress"
	"github.com/logflow/procmine/pkg/trace"
)

// cancelCheckInterval is the number of records between context checks.
const cancelCheckInterval = 4096

// Result contains the outcome of an extraction.
type Result struct {
	// Expected is the record count announced by the caller.
	Expected int
	// Records is the number of records read, malformed ones included.
	Records int
	// WellFormed records were appended to a trace.
	WellFormed int
	// Malformed records were handed to the error policy.
	Malformed int
	// Skipped records were dropped by the skip or quarantine policy.
	Skipped int
	// Traces is the number of distinct case ids.
	Traces int
	// Quarantined holds the dropped records under the quarantine policy.
	Quarantined []ErrorRecord
	Policy      ErrorPolicy
	Duration    time.Duration
}

// Throughput returns records per second.
func (r *Result) Throughput() float64 {
	if r.Duration == 0 {
		return 0
	}
	return float64(r.Records) / r.Duration.Seconds()
}

// SuccessRate returns the percentage of well-formed records.
func (r *Result) SuccessRate() float64 {
	if r.Records == 0 {
		return 100.0
	}
	return float64(r.WellFormed) / float64(r.Records) * 100
}

// Option configures Extract.
type Option func(*options)

type options struct {
	ctx         context.Context
	logger      *slog.Logger
	progress    progress.Func
	checkpoints int
	policy      ErrorPolicy
	maxErrors   int
	prefixScale int64
	quarantine  func(ErrorRecord) error
}

func defaultOptions() options {
	return options{
		ctx:         context.Background(),
		logger:      slog.New(slog.DiscardHandler),
		progress:    progress.Nop,
		checkpoints: progress.DefaultCheckpoints,
		policy:      ErrorPolicySkip,
		prefixScale: trace.DefaultPrefixScale,
	}
}

// WithContext makes the extraction stop when ctx is done.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithLogger sets the logger used for malformed-record diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn progress.Func) Option {
	return func(o *options) {
		if fn != nil {
			o.progress = fn
		}
	}
}

// WithCheckpoints bounds the number of intermediate progress reports.
func WithCheckpoints(n int) Option {
	return func(o *options) {
		o.checkpoints = n
	}
}

// WithErrorPolicy sets how malformed records are handled.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithMaxErrors aborts the extraction after n malformed records. 0 means no limit.
func WithMaxErrors(n int) Option {
	return func(o *options) {
		o.maxErrors = n
	}
}

// WithPrefixScale sets the divisor of the store's prefix index.
func WithPrefixScale(scale int64) Option {
	return func(o *options) {
		o.prefixScale = scale
	}
}

// WithQuarantineWriter receives every record dropped under the quarantine policy.
func WithQuarantineWriter(fn func(ErrorRecord) error) Option {
	return func(o *options) {
		o.quarantine = fn
	}
}

// Extract groups records by case id into a new store. Each well-formed record
// is appended to the trace of its id in arrival order; a trace is created for
// the first record of an id. expected scales progress reporting only.
//
// When the extraction is aborted the store built so far is returned along
// with the error, so the caller can inspect or Reset it.
func Extract(records iter.Seq[model.Record], expected int, opts ...Option) (*trace.Store, *Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store := trace.NewStore(trace.WithPrefixScale(o.prefixScale))
	res := &Result{Expected: expected, Policy: o.policy}
	handler := o.newErrorHandler(res)
	ticker := progress.NewTicker(o.progress, expected, o.checkpoints)
	start := time.Now()

	finish := func(err error) (*trace.Store, *Result, error) {
		res.Traces = store.Len()
		res.Skipped = handler.Stats().SkippedCount
		res.Duration = time.Since(start)
		if err != nil {
			o.logger.Error("extraction aborted",
				"records", res.Records,
				"traces", res.Traces,
				"error", err)
		}
		return store, res, err
	}

	for rec := range records {
		if res.Records%cancelCheckInterval == 0 {
			if err := o.ctx.Err(); err != nil {
				return finish(errors.Wrap(err, errors.CodeContextCanceled, "extraction canceled").
					WithContext("records", res.Records))
			}
		}
		res.Records++

		if !rec.WellFormed() {
			if !errors.IsCode(rec.Err, errors.CodeMalformedRecord) {
				return finish(rec.Err)
			}
			res.Malformed++
			cont, err := handler.HandleError(ErrorRecord{Line: rec.Line, Raw: rec.Raw, Err: rec.Err})
			if !cont {
				return finish(err)
			}
			ticker.Tick(res.Records)
			continue
		}

		store.Append(rec.CaseID, trace.Activity{Name: rec.Activity, Timestamp: rec.Timestamp})
		res.WellFormed++
		ticker.Tick(res.Records)
	}
	ticker.Finish(res.Records)

	o.logger.Debug("extraction finished",
		"records", res.Records,
		"malformed", res.Malformed,
		"traces", store.Len(),
		"buckets", store.Index().Len())
	return finish(nil)
}

func (o *options) newErrorHandler(res *Result) *ErrorHandler {
	h := NewErrorHandler(o.policy).WithMaxErrors(o.maxErrors)

	h.WithOnSkip(func(rec ErrorRecord) {
		o.logger.Warn("skipping malformed record",
			"line", rec.Line,
			"error", rec.Message())
	})

	if o.policy == ErrorPolicyQuarantine {
		h.WithQuarantineWriter(func(rec ErrorRecord) error {
			res.Quarantined = append(res.Quarantined, rec)
			if o.quarantine != nil {
				return o.quarantine(rec)
			}
			return nil
		})
	}
	return h
}
