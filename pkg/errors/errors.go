// Package errors provides coded errors for procmine.
// Errors carry a code, a message, optional context and a short stack trace.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound      Code = "E101"
	CodeFilePermission    Code = "E102"
	CodeMalformedRecord   Code = "E103"
	CodeInvalidFormat     Code = "E104"
	CodeEncodingError     Code = "E106"
	CodeSourceUnavailable Code = "E107"

	// Processing errors (2xx)
	CodeParseFailed    Code = "E201"
	CodeTooManyErrors  Code = "E204"
	CodeEmptyStore     Code = "E205"
	CodeDuplicateTrace Code = "E206"
	CodeIndexCorrupt   Code = "E207"

	// Configuration errors (3xx)
	CodeInvalidConfig Code = "E301"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"
	CodeTelemetry       Code = "E405"

	// Unknown
	CodeUnknown Code = "E999"
)

// Sentinel errors. errors.Is matches any MiningError carrying the same code.
var (
	ErrEmptyStore     = &MiningError{Code: CodeEmptyStore, Message: "store has no traces"}
	ErrDuplicateTrace = &MiningError{Code: CodeDuplicateTrace, Message: "trace already exists"}
)

// MiningError is the base error type for all procmine errors.
type MiningError struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
// Context keys are printed in sorted order so messages are stable.
func (e *MiningError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *MiningError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a MiningError with the same code.
func (e *MiningError) Is(target error) bool {
	if t, ok := target.(*MiningError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *MiningError) WithContext(key string, value interface{}) *MiningError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new MiningError.
func New(code Code, message string) *MiningError {
	return &MiningError{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *MiningError {
	if err == nil {
		return nil
	}

	return &MiningError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *MiningError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *MiningError) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *MiningError {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// SourceUnavailable reports a source that could not be opened.
func SourceUnavailable(location string, cause error) *MiningError {
	return Wrap(cause, CodeSourceUnavailable, "source unavailable").WithContext("source", location)
}

// MalformedRecord describes a log line that is not "<id> <activity> <timestamp>".
func MalformedRecord(line int, reason string) *MiningError {
	return New(CodeMalformedRecord, reason).WithContext("line", line)
}

// EmptyStore reports a statistic requested on a store without traces.
func EmptyStore(operation string) *MiningError {
	return Wrap(ErrEmptyStore, CodeEmptyStore, "statistic undefined on empty store").
		WithContext("operation", operation)
}

// DuplicateTrace reports an insertion of an id that is already stored.
func DuplicateTrace(id int64) *MiningError {
	return Wrap(ErrDuplicateTrace, CodeDuplicateTrace, "duplicate case id").WithContext("id", id)
}

// InvalidConfig reports a configuration value that cannot be used.
func InvalidConfig(key string, value interface{}) *MiningError {
	return New(CodeInvalidConfig, "invalid configuration value").
		WithContext("key", key).
		WithContext("value", value)
}

// ContextCanceled creates a cancellation error.
func ContextCanceled(operation string) *MiningError {
	return New(CodeContextCanceled, "operation canceled").
		WithContext("operation", operation)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var mErr *MiningError
	if errors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var mErr *MiningError
	if errors.As(err, &mErr) {
		return mErr.Code
	}
	return CodeUnknown
}

// IsInputError reports errors caused by the data rather than the program.
func IsInputError(err error) bool {
	switch GetCode(err) {
	case CodeFileNotFound, CodeFilePermission, CodeMalformedRecord, CodeInvalidFormat,
		CodeEncodingError, CodeSourceUnavailable:
		return true
	default:
		return false
	}
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if any errors were collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
