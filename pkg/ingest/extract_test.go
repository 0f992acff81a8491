package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/logflow/procmine/internal/model"
	perrors "github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/parser"
)

const exampleLog = `123 a 1
456 b 4
789 a 5
123 b 2
789 b 6
123 c 3
`

func TestExtract_Example(t *testing.T) {
	store, res, err := Extract(parser.Records(strings.NewReader(exampleLog)), 6)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if store.Len() != 3 || res.Traces != 3 {
		t.Fatalf("traces = %d/%d, want 3", store.Len(), res.Traces)
	}
	if res.Records != 6 || res.WellFormed != 6 || res.Malformed != 0 {
		t.Errorf("result = %+v", res)
	}

	tr, ok := store.Lookup(123)
	if !ok {
		t.Fatal("trace 123 missing")
	}
	if got := tr.Names(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("trace 123 = %v, want [a b c]", got)
	}
	if got := tr.At(1).Timestamp; got != "2" {
		t.Errorf("trace 123 second timestamp = %q, want 2", got)
	}

	var order []int64
	for tr := range store.All() {
		order = append(order, tr.ID())
	}
	if !slices.Equal(order, []int64{789, 456, 123}) {
		t.Errorf("order = %v, want [789 456 123]", order)
	}
}

func TestExtract_SkipMalformed(t *testing.T) {
	input := "1 a 0\nbroken\n2 b 0\nx y z\n1 c 0\n"
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	store, res, err := Extract(parser.Records(strings.NewReader(input)), 5, WithLogger(logger))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if store.Len() != 2 || store.Events() != 3 {
		t.Errorf("store = %d traces / %d events, want 2 / 3", store.Len(), store.Events())
	}
	if res.Malformed != 2 || res.Skipped != 2 || res.WellFormed != 3 {
		t.Errorf("result = %+v", res)
	}
	if n := strings.Count(logs.String(), "skipping malformed record"); n != 2 {
		t.Errorf("logged %d diagnostics, want 2:\n%s", n, logs.String())
	}
	if !strings.Contains(logs.String(), "line=2") {
		t.Errorf("diagnostic should carry the line number:\n%s", logs.String())
	}
}

func TestExtract_Strict(t *testing.T) {
	input := "1 a 0\n2 b 0\nbroken\n3 c 0\n"

	store, res, err := Extract(parser.Records(strings.NewReader(input)), 4, WithErrorPolicy(ErrorPolicyStrict))
	if !perrors.IsCode(err, perrors.CodeMalformedRecord) {
		t.Fatalf("err = %v, want CodeMalformedRecord", err)
	}
	// the partial store is returned and usable
	if store.Len() != 2 || res.Traces != 2 {
		t.Errorf("partial store has %d traces, want 2", store.Len())
	}
	store.Reset()
	if store.Len() != 0 {
		t.Error("partial store should reset")
	}
}

func TestExtract_MaxErrors(t *testing.T) {
	input := "bad\nbad\n1 a 0\nbad\n2 a 0\n"

	_, res, err := Extract(parser.Records(strings.NewReader(input)), 5, WithMaxErrors(3))
	if !perrors.IsCode(err, perrors.CodeTooManyErrors) {
		t.Fatalf("err = %v, want CodeTooManyErrors", err)
	}
	if res.Records != 4 {
		t.Errorf("stopped after %d records, want 4", res.Records)
	}
}

func TestExtract_Quarantine(t *testing.T) {
	input := "1 a 0\nnope\n1 b 0\n"
	var written []int

	store, res, err := Extract(parser.Records(strings.NewReader(input)), 3,
		WithErrorPolicy(ErrorPolicyQuarantine),
		WithQuarantineWriter(func(rec ErrorRecord) error {
			written = append(written, rec.Line)
			return nil
		}))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("traces = %d, want 1", store.Len())
	}
	if len(res.Quarantined) != 1 || res.Quarantined[0].Raw != "nope" {
		t.Errorf("quarantined = %+v", res.Quarantined)
	}
	if !slices.Equal(written, []int{2}) {
		t.Errorf("writer saw lines %v, want [2]", written)
	}
}

func TestExtract_ReadFailureAborts(t *testing.T) {
	readErr := perrors.Wrap(errors.New("disk gone"), perrors.CodeParseFailed, "read failed")
	records := slices.Values([]model.Record{
		{CaseID: 1, Activity: "a", Timestamp: "0", Line: 1},
		model.Malformed(2, "", readErr),
		{CaseID: 2, Activity: "a", Timestamp: "0", Line: 3},
	})

	store, _, err := Extract(records, 3)
	if !perrors.IsCode(err, perrors.CodeParseFailed) {
		t.Fatalf("err = %v, want CodeParseFailed", err)
	}
	if store.Len() != 1 {
		t.Errorf("traces = %d, want 1", store.Len())
	}
}

func TestExtract_OverlongLineSkipped(t *testing.T) {
	long := "7 " + strings.Repeat("n", 2*parser.MaxLineSize) + " 9"
	input := "1 a 1\n" + long + "\n2 b 2\n3 c 3\n"

	store, res, err := Extract(parser.Records(strings.NewReader(input)), 4)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if store.Len() != 3 {
		t.Errorf("traces = %d, want 3", store.Len())
	}
	if res.WellFormed != 3 || res.Malformed != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	if _, ok := store.Lookup(7); ok {
		t.Error("the overlong line should not produce a trace")
	}
}

func TestExtract_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, res, err := Extract(parser.Records(strings.NewReader(exampleLog)), 6, WithContext(ctx))
	if !perrors.IsCode(err, perrors.CodeContextCanceled) {
		t.Fatalf("err = %v, want CodeContextCanceled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("cancellation cause should be preserved")
	}
	if res.Records != 0 {
		t.Errorf("records = %d, want 0", res.Records)
	}
}

func TestExtract_Progress(t *testing.T) {
	const n = 25000
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d step %d\n", i%700, i)
	}

	calls := 0
	var last [2]int
	store, _, err := Extract(parser.Records(strings.NewReader(sb.String())), n,
		WithCheckpoints(20),
		WithProgress(func(current, total int) {
			calls++
			last = [2]int{current, total}
		}))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if calls > 21 {
		t.Errorf("progress called %d times, want at most 21", calls)
	}
	if last != [2]int{n, n} {
		t.Errorf("final progress = %v, want [%d %d]", last, n, n)
	}
	if store.Len() != 700 {
		t.Errorf("traces = %d, want 700", store.Len())
	}
}

func TestExtract_ProgressWithoutKnownTotal(t *testing.T) {
	const n = 10000
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d step %d\n", i%50, i)
	}

	for _, expected := range []int{0, 10} {
		calls := 0
		var last [2]int
		_, _, err := Extract(parser.Records(strings.NewReader(sb.String())), expected,
			WithCheckpoints(20),
			WithProgress(func(current, total int) {
				calls++
				last = [2]int{current, total}
			}))
		if err != nil {
			t.Fatalf("expected=%d: Extract: %v", expected, err)
		}
		if calls > 21 {
			t.Errorf("expected=%d: progress called %d times, want at most 21", expected, calls)
		}
		if last != [2]int{n, n} {
			t.Errorf("expected=%d: final progress = %v, want [%d %d]", expected, last, n, n)
		}
	}
}

func TestExtract_ProgressCompletesWithBlankLines(t *testing.T) {
	input := "1 a 0\n\n\n2 a 0\n"
	lines, _ := parser.CountLines(strings.NewReader(input))

	var last [2]int
	_, _, err := Extract(parser.Records(strings.NewReader(input)), lines,
		WithProgress(func(current, total int) { last = [2]int{current, total} }))
	if err != nil {
		t.Fatal(err)
	}
	if last[0] != last[1] {
		t.Errorf("final progress = %v, want a completed report", last)
	}
}

func TestExtract_PrefixScale(t *testing.T) {
	store, _, err := Extract(parser.Records(strings.NewReader(exampleLog)), 6, WithPrefixScale(100))
	if err != nil {
		t.Fatal(err)
	}
	if store.PrefixScale() != 100 || len(store.Buckets()) != 3 {
		t.Errorf("scale %d, %d buckets; want 100, 3", store.PrefixScale(), len(store.Buckets()))
	}
}

func TestErrorPolicy_Parse(t *testing.T) {
	tests := []struct {
		input   string
		want    ErrorPolicy
		wantErr bool
	}{
		{"", ErrorPolicySkip, false},
		{"skip", ErrorPolicySkip, false},
		{"strict", ErrorPolicyStrict, false},
		{"quarantine", ErrorPolicyQuarantine, false},
		{"lenient", ErrorPolicySkip, true},
	}

	for _, tt := range tests {
		got, err := ParseErrorPolicy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseErrorPolicy(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseErrorPolicy(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !tt.wantErr && got.String() != strings.TrimSpace(orDefault(tt.input, "skip")) {
			t.Errorf("%v.String() = %q", got, got.String())
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func TestErrorHandler_Stats(t *testing.T) {
	h := NewErrorHandler(ErrorPolicyQuarantine).
		WithQuarantineWriter(func(ErrorRecord) error { return errors.New("full") })

	for i := 1; i <= 3; i++ {
		cont, err := h.HandleError(ErrorRecord{Line: i, Err: perrors.MalformedRecord(i, "bad")})
		if !cont || err != nil {
			t.Fatalf("HandleError(%d) = %v, %v", i, cont, err)
		}
	}

	stats := h.Stats()
	if stats.ErrorCount != 3 || stats.SkippedCount != 3 || stats.QuarantineFailed != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if len(h.Errors()) != 3 {
		t.Errorf("collected %d errors, want 3", len(h.Errors()))
	}
}

// genRecords turns generated ints into records over a few ids and names.
func genRecords(values []int) iter.Seq[model.Record] {
	names := []string{"a", "b", "c"}
	return func(yield func(model.Record) bool) {
		for i, v := range values {
			rec := model.Record{CaseID: int64(v % 97), Activity: names[v%3], Timestamp: "0", Line: i + 1}
			if v%11 == 0 {
				rec = model.Malformed(i+1, "junk", perrors.MalformedRecord(i+1, "junk"))
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func TestProperty_Extract(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("traces count distinct ids, lengths sum to well-formed records", prop.ForAll(
		func(values []int) bool {
			distinct := make(map[int64]bool)
			wellFormed := 0
			for rec := range genRecords(values) {
				if rec.WellFormed() {
					distinct[rec.CaseID] = true
					wellFormed++
				}
			}

			store, res, err := Extract(genRecords(values), len(values))
			if err != nil {
				return false
			}
			total := 0
			for tr := range store.All() {
				total += tr.Len()
			}
			return store.Len() == len(distinct) &&
				total == wellFormed &&
				res.WellFormed == wellFormed &&
				store.Verify() == nil
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
	))

	properties.TestingRun(t)
}

func BenchmarkExtract(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 100000; i++ {
		fmt.Fprintf(&sb, "%d step-%d 2024-01-01T00:00:%02d\n", 1200000+i%5000, i%12, i%60)
	}
	input := sb.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Extract(parser.Records(strings.NewReader(input)), 100000); err != nil {
			b.Fatal(err)
		}
	}
}
