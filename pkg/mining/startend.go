package mining

import "github.com/logflow/procmine/pkg/trace"

// StartActivities collects the first activity of every trace.
func StartActivities(s *trace.Store) *ActivitySet {
	set := NewActivitySet()
	for t := range s.All() {
		if first, ok := t.First(); ok {
			set.Insert(first)
		}
	}
	return set
}

// EndActivities collects the last activity of every trace. Entries are
// copies; the set shares nothing mutable with the store.
func EndActivities(s *trace.Store) *ActivitySet {
	set := NewActivitySet()
	for t := range s.All() {
		last, ok := t.Last()
		if !ok {
			continue
		}
		set.Insert(trace.Activity{Name: last.Name, Timestamp: last.Timestamp})
	}
	return set
}
