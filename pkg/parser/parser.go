// Package parser reads event logs into records of
// (case id, activity, timestamp).
package parser

import (
	"io"
	"iter"

	"github.com/logflow/procmine/internal/model"
	"github.com/logflow/procmine/pkg/util"
)

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	// FormatText is one "<id> <activity> <timestamp>" record per line.
	FormatText
	FormatXLSX
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch s {
	case "text", "TEXT", "txt", "log":
		return FormatText
	case "xlsx", "XLSX", "excel", "Excel":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// DetectFormat guesses the format from a file name. Compression suffixes are
// ignored; anything that is not a workbook is read as text.
func DetectFormat(path string) Format {
	if util.BaseFormat(path) == ".xlsx" {
		return FormatXLSX
	}
	return FormatText
}

// Open returns the records of r decoded as format.
func Open(format Format, r io.Reader) (iter.Seq[model.Record], error) {
	switch format {
	case FormatText:
		return Records(r), nil
	case FormatXLSX:
		return XLSXRecords(r, "")
	default:
		return nil, ErrUnsupportedFormat
	}
}

// OpenSized is Open that also returns the record count when format knows it
// before iteration. size is 0 when the count is unknown.
func OpenSized(format Format, r io.Reader) (records iter.Seq[model.Record], size int, err error) {
	if format == FormatXLSX {
		return ReadXLSX(r, "")
	}
	records, err = Open(format, r)
	return records, 0, err
}
