package trace

import (
	"fmt"
	"iter"

	"github.com/logflow/procmine/pkg/errors"
)

// Store owns a set of traces with unique case ids.
// A Store is not safe for concurrent use.
type Store struct {
	index *PrefixIndex

	// traces in creation order. Iteration walks it backwards so the most
	// recently created trace comes first.
	traces []*Trace
}

// Option configures a Store.
type Option func(*Store)

// WithPrefixScale sets the divisor used to bucket case ids.
func WithPrefixScale(scale int64) Option {
	return func(s *Store) {
		s.index = NewPrefixIndex(scale)
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{index: NewPrefixIndex(DefaultPrefixScale)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of traces.
func (s *Store) Len() int {
	return len(s.traces)
}

// PrefixScale returns the index divisor.
func (s *Store) PrefixScale() int64 {
	return s.index.Scale()
}

// Lookup finds a trace through the prefix index.
func (s *Store) Lookup(id int64) (*Trace, bool) {
	return s.index.Find(id)
}

// LinearLookup finds a trace by scanning every trace. It exists to check the
// index against a plain scan.
func (s *Store) LinearLookup(id int64) (*Trace, bool) {
	for _, t := range s.traces {
		if t.id == id {
			return t, true
		}
	}
	return nil, false
}

// InsertNew creates a trace for id with its first activity.
// It fails with ErrDuplicateTrace if id is already stored.
func (s *Store) InsertNew(id int64, first Activity) (*Trace, error) {
	if _, exists := s.index.Find(id); exists {
		return nil, errors.DuplicateTrace(id)
	}
	t := New(id, first)
	s.index.Insert(t)
	s.traces = append(s.traces, t)
	return t, nil
}

// Append adds an activity to the trace for id, creating the trace if needed.
// created reports whether a new trace was inserted.
func (s *Store) Append(id int64, a Activity) (t *Trace, created bool) {
	if t, ok := s.index.Find(id); ok {
		t.activities = append(t.activities, a)
		return t, false
	}
	t = New(id, a)
	s.index.Insert(t)
	s.traces = append(s.traces, t)
	return t, true
}

// All iterates traces, most recently created first.
func (s *Store) All() iter.Seq[*Trace] {
	return func(yield func(*Trace) bool) {
		for i := len(s.traces) - 1; i >= 0; i-- {
			if !yield(s.traces[i]) {
				return
			}
		}
	}
}

// Events returns the total number of activities across all traces.
func (s *Store) Events() int {
	n := 0
	for _, t := range s.traces {
		n += len(t.activities)
	}
	return n
}

// Buckets lists the prefix buckets, most recently created first.
func (s *Store) Buckets() []BucketInfo {
	return s.index.Buckets()
}

// Index exposes the prefix index for inspection.
func (s *Store) Index() *PrefixIndex {
	return s.index
}

// Reset releases every trace and bucket. The store is empty and reusable
// afterwards; traces handed out earlier stay valid for their holders.
func (s *Store) Reset() {
	s.traces = nil
	s.index.reset()
}

// Verify checks that every trace is reachable through exactly one bucket keyed
// by its own prefix and that no bucket holds a trace the store does not own.
func (s *Store) Verify() error {
	seen := make(map[int64]bool, len(s.traces))
	for _, t := range s.traces {
		if seen[t.id] {
			return errors.New(errors.CodeIndexCorrupt, "case id stored twice").WithContext("id", t.id)
		}
		seen[t.id] = true

		found, ok := s.index.Find(t.id)
		if !ok || found != t {
			return errors.New(errors.CodeIndexCorrupt, "trace not reachable through its bucket").
				WithContext("id", t.id)
		}
	}

	indexed := 0
	for prefix, b := range s.index.buckets {
		for _, t := range b.traces {
			if got := s.index.Prefix(t.id); got != prefix {
				return errors.New(errors.CodeIndexCorrupt,
					fmt.Sprintf("trace filed under prefix %d, expected %d", prefix, got)).
					WithContext("id", t.id)
			}
			if !seen[t.id] {
				return errors.New(errors.CodeIndexCorrupt, "bucket holds a trace the store does not own").
					WithContext("id", t.id)
			}
		}
		indexed += len(b.traces)
	}
	if indexed != len(s.traces) {
		return errors.New(errors.CodeIndexCorrupt, "bucket sizes do not match store size").
			WithContext("indexed", indexed).
			WithContext("traces", len(s.traces))
	}
	return nil
}

// TraceView is a read-only snapshot of one trace.
type TraceView struct {
	ID    int64
	Count int
	Names []string
}

// List iterates read-only views of every trace in store order.
func List(s *Store) iter.Seq[TraceView] {
	return func(yield func(TraceView) bool) {
		for t := range s.All() {
			if !yield(TraceView{ID: t.id, Count: len(t.activities), Names: t.Names()}) {
				return
			}
		}
	}
}
