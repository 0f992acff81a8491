// Package trace holds the in-memory trace store: one Trace per case identifier,
// each an ordered list of activities, reachable through a prefix-bucketed index.
package trace

// Activity is one named event occurrence. The timestamp is an opaque token and
// is never interpreted.
type Activity struct {
	Name      string
	Timestamp string
}

// Trace is the ordered activity sequence of one case.
type Trace struct {
	id         int64
	activities []Activity
}

// New creates a trace holding a single activity.
func New(id int64, first Activity) *Trace {
	t := &Trace{
		id:         id,
		activities: make([]Activity, 0, 8),
	}
	t.activities = append(t.activities, first)
	return t
}

// ID returns the case identifier.
func (t *Trace) ID() int64 {
	return t.id
}

// Len returns the number of activities in the trace.
func (t *Trace) Len() int {
	return len(t.activities)
}

// Append adds an activity at the end of the trace.
func (t *Trace) Append(name, timestamp string) {
	t.activities = append(t.activities, Activity{Name: name, Timestamp: timestamp})
}

// Activities returns the activities in arrival order. The slice is shared with
// the trace and must not be modified.
func (t *Trace) Activities() []Activity {
	return t.activities[:len(t.activities):len(t.activities)]
}

// At returns the i-th activity.
func (t *Trace) At(i int) Activity {
	return t.activities[i]
}

// First returns the first activity.
func (t *Trace) First() (Activity, bool) {
	if len(t.activities) == 0 {
		return Activity{}, false
	}
	return t.activities[0], true
}

// Last returns the last activity.
func (t *Trace) Last() (Activity, bool) {
	if len(t.activities) == 0 {
		return Activity{}, false
	}
	return t.activities[len(t.activities)-1], true
}

// Names returns a copy of the activity names in order.
func (t *Trace) Names() []string {
	names := make([]string, len(t.activities))
	for i, a := range t.activities {
		names[i] = a.Name
	}
	return names
}

// SameSequence reports whether both traces have the same activity names in the
// same order. Timestamps are ignored.
func (t *Trace) SameSequence(other *Trace) bool {
	if len(t.activities) != len(other.activities) {
		return false
	}
	for i := range t.activities {
		if t.activities[i].Name != other.activities[i].Name {
			return false
		}
	}
	return true
}
