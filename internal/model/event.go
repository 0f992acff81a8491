// Package model defines the raw record types exchanged between readers and the
// extraction pipeline.
package model

// Record is one line of an event log: a case identifier, an activity name and
// an opaque timestamp token.
type Record struct {
	// CaseID identifies the process instance (trace).
	CaseID int64

	// Activity is the event name/activity label.
	Activity string

	// Timestamp is kept exactly as read. It is never parsed.
	Timestamp string

	// Line is the 1-based position of the record in its source.
	Line int

	// Raw holds the original text, kept for diagnostics.
	Raw string

	// Err is set when the record could not be parsed. A record with Err set
	// carries no usable CaseID/Activity/Timestamp.
	Err error
}

// WellFormed reports whether the record parsed cleanly.
func (r Record) WellFormed() bool {
	return r.Err == nil
}

// Malformed builds a record that failed to parse.
func Malformed(line int, raw string, err error) Record {
	return Record{Line: line, Raw: raw, Err: err}
}
