package sources

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/parser"
)

// StreamSource wraps an io.Reader as a Source. The stream is buffered on the
// first Open so the line-count pre-pass and the extraction can both read it.
type StreamSource struct {
	id     string
	reader io.Reader
	format parser.Format

	once sync.Once
	data []byte
	err  error
}

// NewStreamSource creates a source from an io.Reader.
func NewStreamSource(id string, reader io.Reader, format parser.Format) *StreamSource {
	return &StreamSource{id: id, reader: reader, format: format}
}

// NewStdinSource reads text records from standard input.
func NewStdinSource() *StreamSource {
	return NewStreamSource("stdin", os.Stdin, parser.FormatText)
}

func (s *StreamSource) ID() string            { return s.id }
func (s *StreamSource) Location() string      { return "stream://" + s.id }
func (s *StreamSource) Format() parser.Format { return s.format }

// Open returns a reader over the buffered stream.
func (s *StreamSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.once.Do(func() {
		s.data, s.err = io.ReadAll(s.reader)
	})
	if s.err != nil {
		return nil, errors.SourceUnavailable(s.Location(), s.err)
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

var _ Source = (*StreamSource)(nil)
