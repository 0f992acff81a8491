package mining

import (
	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/trace"
)

// AverageLength returns the mean number of activities per trace.
// An empty store has no average; the error matches errors.ErrEmptyStore.
func AverageLength(s *trace.Store) (float64, error) {
	if s.Len() == 0 {
		return 0, errors.EmptyStore("average_length")
	}
	sum := 0
	for t := range s.All() {
		sum += t.Len()
	}
	return float64(sum) / float64(s.Len()), nil
}

// Summary describes trace-level statistics of a store.
type Summary struct {
	Traces             int     `json:"traces"`
	Events             int     `json:"events"`
	MinLength          int     `json:"min_length"`
	MaxLength          int     `json:"max_length"`
	AverageLength      float64 `json:"average_length"`
	DistinctActivities int     `json:"distinct_activities"`
}

// Summarize computes a Summary in one pass over the store.
func Summarize(s *trace.Store) (Summary, error) {
	if s.Len() == 0 {
		return Summary{}, errors.EmptyStore("summarize")
	}

	sum := Summary{Traces: s.Len(), MinLength: -1}
	names := make(map[string]struct{})
	for t := range s.All() {
		n := t.Len()
		sum.Events += n
		if sum.MinLength < 0 || n < sum.MinLength {
			sum.MinLength = n
		}
		if n > sum.MaxLength {
			sum.MaxLength = n
		}
		for _, a := range t.Activities() {
			names[a.Name] = struct{}{}
		}
	}
	sum.AverageLength = float64(sum.Events) / float64(sum.Traces)
	sum.DistinctActivities = len(names)
	return sum, nil
}
