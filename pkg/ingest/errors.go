package ingest

import (
	"fmt"

	"github.com/logflow/procmine/pkg/errors"
)

// ErrorPolicy determines how malformed records are handled.
type ErrorPolicy int

const (
	// ErrorPolicySkip logs bad records and continues.
	ErrorPolicySkip ErrorPolicy = iota
	// ErrorPolicyStrict aborts on the first bad record.
	ErrorPolicyStrict
	// ErrorPolicyQuarantine keeps bad records for the caller and continues.
	ErrorPolicyQuarantine
)

func (p ErrorPolicy) String() string {
	switch p {
	case ErrorPolicySkip:
		return "skip"
	case ErrorPolicyStrict:
		return "strict"
	case ErrorPolicyQuarantine:
		return "quarantine"
	default:
		return "unknown"
	}
}

// ParseErrorPolicy parses a policy name. The empty string selects skip.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "", "skip":
		return ErrorPolicySkip, nil
	case "strict":
		return ErrorPolicyStrict, nil
	case "quarantine":
		return ErrorPolicyQuarantine, nil
	default:
		return ErrorPolicySkip, errors.InvalidConfig("ingest.error_policy", s)
	}
}

// ErrorRecord describes one malformed record.
type ErrorRecord struct {
	// Line is the 1-based position of the record in its source.
	Line int
	// Raw is the original text of the record.
	Raw string
	// Err is the parse error.
	Err error
}

// Message returns the parse error text.
func (r ErrorRecord) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ErrorHandler applies an ErrorPolicy to malformed records and counts them.
// It is owned by a single extraction and is not safe for concurrent use.
type ErrorHandler struct {
	policy       ErrorPolicy
	maxErrors    int // 0 = unlimited
	errorCount   int
	skippedCount int

	// Collected errors, bounded by maxStored.
	errors    []ErrorRecord
	maxStored int

	onError          func(ErrorRecord)
	onSkip           func(ErrorRecord)
	quarantineWriter func(ErrorRecord) error
	quarantineFailed int
}

// NewErrorHandler creates an error handler with the given policy.
func NewErrorHandler(policy ErrorPolicy) *ErrorHandler {
	return &ErrorHandler{
		policy:    policy,
		maxStored: 1000,
	}
}

// WithMaxErrors aborts processing once max records were malformed.
func (h *ErrorHandler) WithMaxErrors(max int) *ErrorHandler {
	h.maxErrors = max
	return h
}

// WithOnError sets a callback invoked for every malformed record.
func (h *ErrorHandler) WithOnError(fn func(ErrorRecord)) *ErrorHandler {
	h.onError = fn
	return h
}

// WithOnSkip sets a callback invoked for every record that is dropped.
func (h *ErrorHandler) WithOnSkip(fn func(ErrorRecord)) *ErrorHandler {
	h.onSkip = fn
	return h
}

// WithQuarantineWriter sets the sink for quarantined records.
func (h *ErrorHandler) WithQuarantineWriter(fn func(ErrorRecord) error) *ErrorHandler {
	h.quarantineWriter = fn
	return h
}

// HandleError applies the policy to rec. It returns false with a coded error
// when processing must stop.
func (h *ErrorHandler) HandleError(rec ErrorRecord) (continueProcessing bool, returnErr error) {
	h.errorCount++
	if len(h.errors) < h.maxStored {
		h.errors = append(h.errors, rec)
	}
	if h.onError != nil {
		h.onError(rec)
	}

	cause := rec.Err
	if cause == nil {
		cause = errors.MalformedRecord(rec.Line, "malformed record")
	}

	if h.maxErrors > 0 && h.errorCount >= h.maxErrors {
		return false, errors.Wrap(cause, errors.CodeTooManyErrors,
			fmt.Sprintf("maximum error count (%d) reached", h.maxErrors)).
			WithContext("line", rec.Line)
	}

	switch h.policy {
	case ErrorPolicyStrict:
		return false, cause

	case ErrorPolicySkip:
		h.skippedCount++
		if h.onSkip != nil {
			h.onSkip(rec)
		}
		return true, nil

	case ErrorPolicyQuarantine:
		h.skippedCount++
		if h.quarantineWriter != nil {
			if err := h.quarantineWriter(rec); err != nil {
				h.quarantineFailed++
			}
		}
		if h.onSkip != nil {
			h.onSkip(rec)
		}
		return true, nil

	default:
		return false, errors.New(errors.CodeInvalidConfig, "unknown error policy").
			WithContext("policy", int(h.policy))
	}
}

// Stats returns error statistics.
func (h *ErrorHandler) Stats() ErrorStats {
	return ErrorStats{
		ErrorCount:       h.errorCount,
		SkippedCount:     h.skippedCount,
		QuarantineFailed: h.quarantineFailed,
		Policy:           h.policy,
	}
}

// Errors returns the collected errors.
func (h *ErrorHandler) Errors() []ErrorRecord {
	result := make([]ErrorRecord, len(h.errors))
	copy(result, h.errors)
	return result
}

// ErrorStats contains error processing statistics.
type ErrorStats struct {
	ErrorCount       int
	SkippedCount     int
	QuarantineFailed int
	Policy           ErrorPolicy
}
