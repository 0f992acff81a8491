package parser

import "errors"

var (
	// ErrUnsupportedFormat is returned when the input format is not supported.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// ErrNoSheet is returned when a workbook has no worksheet to read.
	ErrNoSheet = errors.New("parser: no sheets found in xlsx file")
)
