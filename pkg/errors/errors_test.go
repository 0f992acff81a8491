package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMiningError_Error(t *testing.T) {
	err := New(CodeMalformedRecord, "expected 3 fields").
		WithContext("line", 7).
		WithContext("fields", 2)

	got := err.Error()
	want := "[E103] expected 3 fields (fields=2, line=7)"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestMiningError_Cause(t *testing.T) {
	cause := fmt.Errorf("open smallDataset.txt: no such file")
	err := SourceUnavailable("smallDataset.txt", cause)

	if !strings.HasSuffix(err.Error(), cause.Error()) {
		t.Errorf("Error() = %q, want suffix %q", err.Error(), cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if GetCode(err) != CodeSourceUnavailable {
		t.Errorf("GetCode() = %s, want %s", GetCode(err), CodeSourceUnavailable)
	}
}

func TestSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"empty store", EmptyStore("average"), ErrEmptyStore, true},
		{"wrapped empty store", fmt.Errorf("stats: %w", EmptyStore("average")), ErrEmptyStore, true},
		{"duplicate trace", DuplicateTrace(123), ErrDuplicateTrace, true},
		{"different code", DuplicateTrace(123), ErrEmptyStore, false},
		{"plain error", fmt.Errorf("boom"), ErrEmptyStore, false},
	}

	for _, tt := range tests {
		if got := errors.Is(tt.err, tt.target); got != tt.want {
			t.Errorf("%s: errors.Is = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("ingest: %w", MalformedRecord(3, "bad id"))

	if !IsCode(err, CodeMalformedRecord) {
		t.Error("IsCode should see through fmt wrapping")
	}
	if IsCode(err, CodeEmptyStore) {
		t.Error("IsCode matched the wrong code")
	}
	if GetCode(fmt.Errorf("plain")) != CodeUnknown {
		t.Error("plain errors should map to CodeUnknown")
	}
}

func TestIsInputError(t *testing.T) {
	if !IsInputError(FileNotFound("x.txt")) {
		t.Error("file not found is an input error")
	}
	if IsInputError(EmptyStore("average")) {
		t.Error("empty store is not an input error")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CodeUnknown, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestMultiError(t *testing.T) {
	var m MultiError
	if m.Combined() != nil {
		t.Error("empty MultiError should combine to nil")
	}

	first := New(CodeParseFailed, "first")
	m.Add(first)
	m.Add(nil)
	if m.Combined() != first {
		t.Error("single error should be returned as-is")
	}

	m.Add(New(CodeParseFailed, "second"))
	if !m.HasErrors() || len(m.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(m.Errors))
	}
	if !strings.HasPrefix(m.Combined().Error(), "2 errors occurred") {
		t.Errorf("unexpected message %q", m.Combined().Error())
	}
}
