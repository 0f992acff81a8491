package sources

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/logflow/procmine/pkg/errors"
	"github.com/logflow/procmine/pkg/parser"
	"github.com/logflow/procmine/pkg/util"
)

// S3Config holds S3 client configuration.
type S3Config struct {
	// Region is the AWS region (e.g., "us-east-1")
	Region string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	DownloadTimeout time.Duration
}

// ObjectGetter is the subset of the S3 API used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads an object from S3.
type S3Source struct {
	uri     string
	bucket  string
	key     string
	format  parser.Format
	timeout time.Duration
	client  ObjectGetter
}

// ParseS3URI splits "s3://bucket/key" into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", errors.New(errors.CodeInvalidFormat, "not an s3 uri").WithContext("uri", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.New(errors.CodeInvalidFormat, "s3 uri needs a bucket and a key").WithContext("uri", uri)
	}
	return bucket, key, nil
}

// NewS3Source creates a source for uri using the default AWS credential
// chain unless static credentials are configured.
func NewS3Source(ctx context.Context, uri string, cfg S3Config) (*S3Source, error) {
	if _, _, err := ParseS3URI(uri); err != nil {
		return nil, err
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, errors.SourceUnavailable(uri, err)
	}
	return NewS3SourceWithClient(uri, client, cfg)
}

// NewS3SourceWithClient creates a source reading through client.
func NewS3SourceWithClient(uri string, client ObjectGetter, cfg S3Config) (*S3Source, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	timeout := cfg.DownloadTimeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &S3Source{
		uri:     uri,
		bucket:  bucket,
		key:     key,
		format:  parser.DetectFormat(key),
		timeout: timeout,
		client:  client,
	}, nil
}

func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

func (s *S3Source) ID() string            { return s.uri }
func (s *S3Source) Location() string      { return s.uri }
func (s *S3Source) Format() parser.Format { return s.format }
func (s *S3Source) Bucket() string        { return s.bucket }
func (s *S3Source) Key() string           { return s.key }

// Open downloads the object. The body is decompressed when the key ends in ".gz".
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		cancel()
		return nil, errors.SourceUnavailable(s.uri, err)
	}

	body := &cancelReadCloser{ReadCloser: output.Body, cancel: cancel}
	if util.IsGzipFile(s.key) {
		rc, err := util.Decompress(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeEncodingError, "gzip").WithContext("source", s.uri)
		}
		return rc, nil
	}
	return body, nil
}

// cancelReadCloser releases the request context when the body is closed.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

var _ Source = (*S3Source)(nil)
