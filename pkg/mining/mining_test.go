package mining

import (
	"errors"
	"math"
	"slices"
	"testing"

	perrors "github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/trace"
)

type event struct {
	id   int64
	name string
	ts   string
}

func buildStore(events []event) *trace.Store {
	s := trace.NewStore()
	for _, e := range events {
		s.Append(e.id, trace.Activity{Name: e.name, Timestamp: e.ts})
	}
	return s
}

// exampleStore: 123 -> a b c, 456 -> b, 789 -> a b.
func exampleStore() *trace.Store {
	return buildStore([]event{
		{123, "a", "1"},
		{456, "b", "4"},
		{789, "a", "5"},
		{123, "b", "2"},
		{789, "b", "6"},
		{123, "c", "3"},
	})
}

func TestActivitySet_Insert(t *testing.T) {
	tests := []struct {
		name   string
		insert []string
		want   []string
		added  []bool
	}{
		{"empty set takes first entry", []string{"m"}, []string{"m"}, []bool{true}},
		{"ordered", []string{"c", "a", "b"}, []string{"a", "b", "c"}, []bool{true, true, true}},
		{"duplicate is a no-op", []string{"b", "a", "b"}, []string{"a", "b"}, []bool{true, true, false}},
		{"case sensitive", []string{"a", "B", "A"}, []string{"A", "B", "a"}, []bool{true, true, true}},
		{"prefix sorts first", []string{"ab", "a", "abc"}, []string{"a", "ab", "abc"}, []bool{true, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewActivitySet()
			for i, name := range tt.insert {
				if got := set.Insert(trace.Activity{Name: name, Timestamp: "0"}); got != tt.added[i] {
					t.Errorf("Insert(%q) = %v, want %v", name, got, tt.added[i])
				}
			}
			if !slices.Equal(set.Names(), tt.want) {
				t.Errorf("Names() = %v, want %v", set.Names(), tt.want)
			}
			if set.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", set.Len(), len(tt.want))
			}
		})
	}
}

func TestActivitySet_DuplicateKeepsFirstTimestamp(t *testing.T) {
	set := NewActivitySet()
	set.Insert(trace.Activity{Name: "a", Timestamp: "first"})
	set.Insert(trace.Activity{Name: "a", Timestamp: "second"})

	entries := set.Entries()
	if len(entries) != 1 || entries[0].Timestamp != "first" {
		t.Errorf("Entries() = %v, want one entry with the first timestamp", entries)
	}
	if !set.Contains("a") || set.Contains("b") {
		t.Error("Contains mismatch")
	}
}

func TestStartEndActivities(t *testing.T) {
	s := exampleStore()

	start := StartActivities(s)
	if want := []string{"a", "b"}; !slices.Equal(start.Names(), want) {
		t.Errorf("StartActivities = %v, want %v", start.Names(), want)
	}

	end := EndActivities(s)
	if want := []string{"b", "c"}; !slices.Equal(end.Names(), want) {
		t.Errorf("EndActivities = %v, want %v", end.Names(), want)
	}
}

func TestStartEndActivities_EveryTraceContributes(t *testing.T) {
	// the oldest trace is the last one iterated; its activities must count
	s := buildStore([]event{
		{1, "only-first", "0"},
		{1, "only-last", "1"},
		{2, "x", "2"},
	})

	if !StartActivities(s).Contains("only-first") {
		t.Error("start set misses the first activity of the oldest trace")
	}
	if !EndActivities(s).Contains("only-last") {
		t.Error("end set misses the last activity of the oldest trace")
	}
}

func TestStartEndActivities_SingleTrace(t *testing.T) {
	s := buildStore([]event{{9, "solo", "t"}})

	if got := StartActivities(s).Names(); !slices.Equal(got, []string{"solo"}) {
		t.Errorf("start = %v", got)
	}
	if got := EndActivities(s).Names(); !slices.Equal(got, []string{"solo"}) {
		t.Errorf("end = %v", got)
	}
}

func TestStartEndActivities_Empty(t *testing.T) {
	s := trace.NewStore()
	if StartActivities(s).Len() != 0 || EndActivities(s).Len() != 0 {
		t.Error("empty store should produce empty sets")
	}
}

func TestEndActivities_Independent(t *testing.T) {
	s := exampleStore()
	end := EndActivities(s)

	tr, _ := s.Lookup(123)
	tr.Append("d", "7")

	if end.Contains("d") {
		t.Error("end set changed after the store was modified")
	}
	entries := end.Entries()
	entries[0].Name = "zzz"
	if end.Contains("zzz") {
		t.Error("Entries() should return a copy")
	}
}

func TestAverageLength(t *testing.T) {
	tests := []struct {
		name   string
		events []event
		want   float64
	}{
		{"example", nil, 2.0},
		{"single", []event{{1, "a", "0"}}, 1.0},
		{"uneven", []event{{1, "a", "0"}, {1, "b", "0"}, {2, "a", "0"}, {3, "a", "0"}}, 4.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := exampleStore()
			if tt.events != nil {
				s = buildStore(tt.events)
			}
			got, err := AverageLength(s)
			if err != nil {
				t.Fatalf("AverageLength: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AverageLength = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAverageLength_Empty(t *testing.T) {
	_, err := AverageLength(trace.NewStore())
	if !errors.Is(err, perrors.ErrEmptyStore) {
		t.Errorf("AverageLength(empty) err = %v, want ErrEmptyStore", err)
	}
}

func TestSummarize(t *testing.T) {
	sum, err := Summarize(exampleStore())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := Summary{
		Traces:             3,
		Events:             6,
		MinLength:          1,
		MaxLength:          3,
		AverageLength:      2.0,
		DistinctActivities: 3,
	}
	if sum != want {
		t.Errorf("Summarize = %+v, want %+v", sum, want)
	}

	if _, err := Summarize(trace.NewStore()); !perrors.IsCode(err, perrors.CodeEmptyStore) {
		t.Errorf("Summarize(empty) err = %v, want CodeEmptyStore", err)
	}
}
