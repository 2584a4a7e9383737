package dataset

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"google.golang.org/api/option"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported locator scheme")
	ErrBadStatus         = errors.New("unexpected http status")
	ErrNoS3Endpoint      = errors.New("no s3 endpoint configured")
)

// Fetcher opens a dataset resource identified by a locator
type Fetcher interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// S3Options configures access to s3 compatible object stores
type S3Options struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// FetchOptions configures the remote backends of a LocatorFetcher
type FetchOptions struct {
	HTTPClient *http.Client

	// GCSCredentialsFile is a service account key. Application default credentials are
	// used when empty.
	GCSCredentialsFile string

	S3 S3Options
}

// NewDefaultFetchOptions returns options using the default http client and ambient
// cloud credentials
func NewDefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		HTTPClient: http.DefaultClient,
	}
}

// LocatorFetcher dispatches on the locator scheme: http(s)://, gs://, s3://, file:// or a
// plain path. Resources ending in .gz are decompressed.
type LocatorFetcher struct {
	opt *FetchOptions
}

// NewLocatorFetcher creates a fetcher with the given options. If none are provided a
// default is used.
func NewLocatorFetcher(opt *FetchOptions) *LocatorFetcher {
	if opt == nil {
		opt = NewDefaultFetchOptions()
	}
	if opt.HTTPClient == nil {
		opt.HTTPClient = http.DefaultClient
	}
	return &LocatorFetcher{opt: opt}
}

// Open returns a reader of the resource contents
func (l *LocatorFetcher) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	rc, err := l.open(ctx, locator)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(locator, ".gz") {
		return rc, nil
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("unable to decompress %s, %w", locator, err)
	}
	return &multiCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil
}

func (l *LocatorFetcher) open(ctx context.Context, locator string) (io.ReadCloser, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain paths, including windows drive letters
		return os.Open(locator)
	}

	switch u.Scheme {
	case "file":
		return os.Open(u.Path)
	case "http", "https":
		return l.openHTTP(ctx, locator)
	case "gs":
		return l.openGCS(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	case "s3":
		return l.openS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	default:
		return nil, fmt.Errorf("%q, %w", u.Scheme, ErrUnsupportedScheme)
	}
}

func (l *LocatorFetcher) openHTTP(ctx context.Context, locator string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.opt.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %d, %w", locator, resp.StatusCode, ErrBadStatus)
	}
	return resp.Body, nil
}

func (l *LocatorFetcher) openGCS(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	var opts []option.ClientOption
	if l.opt.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(l.opt.GCSCredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client, %w", err)
	}
	reader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open gs://%s/%s, %w", bucket, object, err)
	}
	return &multiCloser{Reader: reader, closers: []io.Closer{reader, client}}, nil
}

func (l *LocatorFetcher) openS3(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	if l.opt.S3.Endpoint == "" {
		return nil, ErrNoS3Endpoint
	}
	client, err := minio.New(l.opt.S3.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(l.opt.S3.AccessKey, l.opt.S3.SecretKey, ""),
		Secure: l.opt.S3.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client, %w", err)
	}
	obj, err := client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open s3://%s/%s, %w", bucket, object, err)
	}
	// GetObject is lazy so stat to surface missing objects before parsing
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to stat s3://%s/%s, %w", bucket, object, err)
	}
	return obj, nil
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
