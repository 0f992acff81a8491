// Package mining computes process-mining aggregates over a trace store:
// start and end activity sets, trace length statistics and variants.
package mining

import (
	"slices"
	"strings"

	"github.com/logflow/procmine/pkg/trace"
)

// ActivitySet is a sorted, duplicate-free set of activities keyed by name.
// Names compare byte-wise; no case folding or collation is applied.
type ActivitySet struct {
	entries []trace.Activity
}

// NewActivitySet creates an empty set.
func NewActivitySet() *ActivitySet {
	return &ActivitySet{}
}

// Insert adds a at its ordered position. If an entry with the same name is
// already present the set is unchanged and Insert returns false.
func (s *ActivitySet) Insert(a trace.Activity) bool {
	i, found := slices.BinarySearchFunc(s.entries, a.Name, func(e trace.Activity, name string) int {
		return strings.Compare(e.Name, name)
	})
	if found {
		return false
	}
	s.entries = slices.Insert(s.entries, i, a)
	return true
}

// Contains reports whether an entry named name exists.
func (s *ActivitySet) Contains(name string) bool {
	_, found := slices.BinarySearchFunc(s.entries, name, func(e trace.Activity, name string) int {
		return strings.Compare(e.Name, name)
	})
	return found
}

// Len returns the number of entries.
func (s *ActivitySet) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in ascending name order.
func (s *ActivitySet) Entries() []trace.Activity {
	return slices.Clone(s.entries)
}

// Names returns the entry names in ascending order.
func (s *ActivitySet) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}
