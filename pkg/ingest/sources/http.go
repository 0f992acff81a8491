package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/util"
)

// HTTPSource fetches an event log from an HTTP/HTTPS URL.
type HTTPSource struct {
	url     *url.URL
	client  *http.Client
	headers map[string]string
	format  parser.Format
}

// HTTPSourceOptions configures HTTP source behavior.
type HTTPSourceOptions struct {
	// Custom HTTP client
	Client *http.Client

	// Custom headers
	Headers map[string]string

	Timeout     time.Duration
	BearerToken string
}

// NewHTTPSource creates an HTTP source from a URL.
func NewHTTPSource(rawURL string, opts *HTTPSourceOptions) (*HTTPSource, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidFormat, "invalid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New(errors.CodeInvalidFormat, "unsupported scheme").WithContext("scheme", parsed.Scheme)
	}

	if opts == nil {
		opts = &HTTPSourceOptions{}
	}

	s := &HTTPSource{
		url:     parsed,
		headers: make(map[string]string),
		format:  parser.DetectFormat(parsed.Path),
	}

	if opts.Client != nil {
		s.client = opts.Client
	} else {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		s.client = &http.Client{Timeout: timeout}
	}

	for k, v := range opts.Headers {
		s.headers[k] = v
	}
	if opts.BearerToken != "" {
		s.headers["Authorization"] = "Bearer " + opts.BearerToken
	}

	return s, nil
}

func (s *HTTPSource) ID() string            { return s.url.String() }
func (s *HTTPSource) Location() string      { return s.url.String() }
func (s *HTTPSource) Format() parser.Format { return s.format }

// Open fetches the URL. Bodies of ".gz" paths or gzip content types are
// decompressed.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return nil, errors.SourceUnavailable(s.Location(), err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.SourceUnavailable(s.Location(), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.SourceUnavailable(s.Location(), fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)).
			WithContext("status", resp.StatusCode)
	}

	if util.IsGzipFile(s.url.Path) || strings.Contains(resp.Header.Get("Content-Type"), "application/gzip") {
		rc, err := util.Decompress(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeEncodingError, "gzip").WithContext("source", s.Location())
		}
		return rc, nil
	}
	return resp.Body, nil
}

var _ Source = (*HTTPSource)(nil)
