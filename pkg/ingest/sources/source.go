// Package sources opens event logs from local files, object storage, HTTP
// endpoints and in-memory buffers.
package sources

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/parser"
)

// Source is a readable event log.
type Source interface {
	// ID identifies the source in logs and reports.
	ID() string
	// Location is the URI the source was resolved from.
	Location() string
	// Format is the record format of the decompressed content.
	Format() parser.Format
	// Open returns a fresh reader over the decompressed content. A source may
	// be opened more than once unless documented otherwise.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Config holds settings for remote sources.
type Config struct {
	S3          S3Config
	HTTPTimeout time.Duration
}

// Resolve picks a Source implementation for uri:
//
//	s3://bucket/key       object in S3 or an S3-compatible store
//	http(s)://host/path   HTTP GET
//	-                     standard input (read once)
//	anything else         local file path
//
// Local files are checked before returning so a missing log fails fast.
func Resolve(ctx context.Context, uri string, cfg Config) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		return NewS3Source(ctx, uri, cfg.S3)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return NewHTTPSource(uri, &HTTPSourceOptions{Timeout: cfg.HTTPTimeout})
	case uri == "-":
		return NewStdinSource(), nil
	default:
		return NewFileSource(uri)
	}
}

// unavailable wraps an open failure as a source error.
func unavailable(location string, err error) error {
	if errors.GetCode(err) != errors.CodeUnknown {
		return err
	}
	return errors.SourceUnavailable(location, err)
}
