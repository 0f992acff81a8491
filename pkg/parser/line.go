package parser

import (
	"bufio"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/logflow/procmine/internal/model"
	"github.com/logflow/procmine/pkg/errors"
)

// MaxLineSize bounds a single log line.
const MaxLineSize = 1 << 20

// ParseLine decodes "<id> <activity> <timestamp>". Tokens are separated by
// any run of whitespace; the id must be a base-10 int64. lineNo is only used
// for diagnostics.
func ParseLine(line string, lineNo int) model.Record {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return model.Malformed(lineNo, line,
			errors.MalformedRecord(lineNo, "expected 3 fields").WithContext("fields", len(fields)))
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return model.Malformed(lineNo, line,
			errors.MalformedRecord(lineNo, "case id is not an integer").WithContext("id", fields[0]))
	}

	return model.Record{
		CaseID:    id,
		Activity:  fields[1],
		Timestamp: fields[2],
		Line:      lineNo,
		Raw:       line,
	}
}

// Records streams the records of r. Blank and whitespace-only lines are
// skipped and never reported. Malformed lines, including lines longer than
// MaxLineSize, carry CodeMalformedRecord and reading resumes at the next line.
// A read failure ends the sequence with a record whose Err carries
// CodeParseFailed.
func Records(r io.Reader) iter.Seq[model.Record] {
	return func(yield func(model.Record) bool) {
		br := bufio.NewReaderSize(r, 64*1024)

		lineNo := 0
		for {
			line, tooLong, err := readLine(br)
			if err != nil && err != io.EOF {
				yield(model.Malformed(lineNo+1, "",
					errors.Wrap(err, errors.CodeParseFailed, "read failed").WithContext("line", lineNo+1)))
				return
			}
			if err == io.EOF && len(line) == 0 && !tooLong {
				return
			}
			lineNo++

			var rec model.Record
			switch {
			case tooLong:
				rec = model.Malformed(lineNo, string(line),
					errors.MalformedRecord(lineNo, "line too long").WithContext("max", MaxLineSize))
			case strings.TrimSpace(string(line)) == "":
				if err == io.EOF {
					return
				}
				continue
			default:
				rec = ParseLine(string(line), lineNo)
			}
			if !yield(rec) || err == io.EOF {
				return
			}
		}
	}
}

// rawPreview bounds the Raw text kept for an oversized line.
const rawPreview = 256

// readLine returns the next line of br without its line terminator. A line
// longer than MaxLineSize is consumed through its newline and returned
// truncated to rawPreview bytes with tooLong set. err is io.EOF when the
// input ended, possibly after a final unterminated line.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, rerr := br.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			// +2 leaves room for a "\r\n" terminator.
			if len(line) > MaxLineSize+2 {
				tooLong = true
				line = line[:rawPreview]
			}
		}
		if rerr == bufio.ErrBufferFull {
			continue
		}

		line = trimEOL(line)
		if !tooLong && len(line) > MaxLineSize {
			tooLong = true
			line = line[:rawPreview]
		}
		return line, tooLong, rerr
	}
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}
