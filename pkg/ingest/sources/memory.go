package sources

import (
	"bytes"
	"context"
	"io"

	"github.com/logflow/procmine/pkg/parser"
)

// MemorySource serves a log held in memory (tests, generated data).
type MemorySource struct {
	id     string
	data   []byte
	format parser.Format
}

// NewMemorySource creates a source from bytes.
func NewMemorySource(id string, data []byte, format parser.Format) *MemorySource {
	return &MemorySource{id: id, data: data, format: format}
}

func (m *MemorySource) ID() string            { return m.id }
func (m *MemorySource) Location() string      { return "memory://" + m.id }
func (m *MemorySource) Format() parser.Format { return m.format }

// Open returns a reader for the data.
func (m *MemorySource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

var _ Source = (*MemorySource)(nil)
