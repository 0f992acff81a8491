// Package util provides helpers for opening log files.
package util

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// OpenFile opens a file, decompressing it if its name ends in ".gz".
// Closing the returned reader closes the underlying file.
func OpenFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsGzipFile(path) {
		return file, nil
	}
	return Decompress(file)
}

// Decompress wraps rc in a gzip reader. Closing the result closes both.
func Decompress(rc io.ReadCloser) (io.ReadCloser, error) {
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &gzipReadCloser{Reader: gz, underlying: rc}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return gzErr
}

// IsGzipFile returns true if the path indicates gzip compression.
func IsGzipFile(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// StripCompression removes a trailing .gz from a path.
func StripCompression(path string) string {
	if IsGzipFile(path) {
		return path[:len(path)-3]
	}
	return path
}

// BaseFormat extracts the extension after stripping compression.
// e.g., "events.log.gz" -> ".log", "events.xlsx" -> ".xlsx"
func BaseFormat(path string) string {
	return strings.ToLower(filepath.Ext(StripCompression(path)))
}
