package sources

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/util"
)

// FileSource implements Source for local files. Files ending in ".gz" are
// decompressed on open.
type FileSource struct {
	path   string
	info   os.FileInfo
	format parser.Format
}

// NewFileSource creates a file source. It fails with CodeFileNotFound when
// path does not exist.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(path)
		}
		return nil, errors.SourceUnavailable(path, err)
	}
	if info.IsDir() {
		return nil, errors.New(errors.CodeInvalidFormat, "source is a directory").WithContext("path", path)
	}

	return &FileSource{
		path:   path,
		info:   info,
		format: parser.DetectFormat(path),
	}, nil
}

func (f *FileSource) ID() string            { return f.path }
func (f *FileSource) Location() string      { return f.path }
func (f *FileSource) Format() parser.Format { return f.format }
func (f *FileSource) Size() int64           { return f.info.Size() }
func (f *FileSource) ModTime() time.Time    { return f.info.ModTime() }

// Open returns a reader for the file.
func (f *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeContextCanceled, "open canceled")
	}
	rc, err := util.OpenFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(f.path)
		}
		if os.IsPermission(err) {
			return nil, errors.Wrap(err, errors.CodeFilePermission, "permission denied").WithContext("path", f.path)
		}
		return nil, unavailable(f.path, err)
	}
	return rc, nil
}

var _ Source = (*FileSource)(nil)
