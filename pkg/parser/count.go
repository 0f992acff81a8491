package parser

import (
	"bytes"
	"io"
)

// CountLines counts the lines of r. A final line without a trailing newline
// counts as a line. The count is an estimate of the record count used to
// scale progress reporting; blank lines are included.
func CountLines(r io.Reader) (int, error) {
	buf := make([]byte, 32*1024)
	count := 0
	var last byte = '\n'

	for {
		n, err := r.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
	}

	if last != '\n' {
		count++
	}
	return count, nil
}
