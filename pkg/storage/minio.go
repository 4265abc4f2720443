package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// GCSEndpoint is the Cloud Storage XML API host that speaks the S3 protocol
// when authenticated with HMAC interoperability keys.
const GCSEndpoint = "storage.googleapis.com"

// MinioClient is the subset of *minio.Client used by MinioStorage.
// Only object-level methods are listed.
type MinioClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinioConfig contains configuration for S3-compatible services
// (MinIO, Wasabi, Cloud Storage interop, ...).
type MinioConfig struct {
	Endpoint  string // host[:port] without scheme
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3CompatibleConfig is the env-bound configuration for the s3_compatible provider.
type S3CompatibleConfig struct {
	Endpoint  string `env:"S3_COMPAT_ENDPOINT"`
	Bucket    string `env:"S3_COMPAT_BUCKET"`
	Region    string `env:"S3_COMPAT_REGION"`
	AccessKey string `env:"S3_COMPAT_ACCESS_KEY"`
	SecretKey string `env:"S3_COMPAT_SECRET_KEY"`
	UseSSL    bool   `env:"S3_COMPAT_USE_SSL" envDefault:"true"`
}

// Enabled reports whether enough settings are present to register the provider.
func (c S3CompatibleConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// GCSConfig is the env-bound configuration for the google_cloud_storage provider.
// AccessKey/SecretKey are Cloud Storage HMAC keys.
type GCSConfig struct {
	Bucket    string `env:"GCS_BUCKET_NAME"`
	AccessKey string `env:"GCS_HMAC_ACCESS_KEY"`
	SecretKey string `env:"GCS_HMAC_SECRET"`
}

// Enabled reports whether enough settings are present to register the provider.
func (c GCSConfig) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// MinioStorage implements Storage on top of minio-go. The same type serves the
// s3_compatible and google_cloud_storage providers.
type MinioStorage struct {
	client        MinioClient
	provider      string
	bucket        string
	uploadTimeout time.Duration
}

// MinioOption configures MinioStorage.
type MinioOption func(*minioOptions)

type minioOptions struct {
	client        MinioClient
	transport     http.RoundTripper
	uploadTimeout time.Duration
}

// WithMinioClient sets a pre-configured client. Useful for testing with mocks.
func WithMinioClient(c MinioClient) MinioOption {
	return func(o *minioOptions) { o.client = c }
}

// WithMinioTransport sets a custom HTTP transport for the underlying client.
func WithMinioTransport(t http.RoundTripper) MinioOption {
	return func(o *minioOptions) { o.transport = t }
}

// WithMinioUploadTimeout sets the timeout for store operations.
func WithMinioUploadTimeout(d time.Duration) MinioOption {
	return func(o *minioOptions) { o.uploadTimeout = d }
}

// NewMinioStorage creates storage for an S3-compatible endpoint registered
// under the given provider name.
func NewMinioStorage(provider string, cfg MinioConfig, opts ...MinioOption) (*MinioStorage, error) {
	if provider == "" || cfg.Bucket == "" {
		return nil, ErrInvalidConfig
	}

	options := &minioOptions{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		if cfg.Endpoint == "" {
			return nil, ErrInvalidConfig
		}
		c, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure:    cfg.UseSSL,
			Region:    cfg.Region,
			Transport: options.transport,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}
		client = c
	}

	return &MinioStorage{
		client:        client,
		provider:      provider,
		bucket:        cfg.Bucket,
		uploadTimeout: options.uploadTimeout,
	}, nil
}

// NewS3CompatibleStorage creates the s3_compatible provider.
func NewS3CompatibleStorage(cfg S3CompatibleConfig, opts ...MinioOption) (*MinioStorage, error) {
	return NewMinioStorage(ProviderS3Compatible, MinioConfig{
		Endpoint:  cfg.Endpoint,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
	}, opts...)
}

// NewGCSStorage creates the google_cloud_storage provider through the
// Cloud Storage S3 interoperability API.
func NewGCSStorage(cfg GCSConfig, opts ...MinioOption) (*MinioStorage, error) {
	return NewMinioStorage(ProviderGCS, MinioConfig{
		Endpoint:  GCSEndpoint,
		Bucket:    cfg.Bucket,
		Region:    "auto",
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    true,
	}, opts...)
}

// Provider returns the provider name the storage was created with.
func (s *MinioStorage) Provider() string { return s.provider }

// Capabilities reports listing and signed links.
func (s *MinioStorage) Capabilities() Capability { return CapList | CapSignedURL }

// classifyMinioError converts minio errors to package errors.
func classifyMinioError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", ErrOperationCanceled, operation)
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %s", ErrFileNotFound, err)
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "AccessDenied":
		return fmt.Errorf("%w: %s operation", ErrAccessDenied, operation)
	case "RequestTimeout":
		return fmt.Errorf("%w: %s operation", ErrRequestTimeout, operation)
	case "SlowDown", "ServiceUnavailable":
		return fmt.Errorf("%w: %s operation", ErrServiceUnavailable, operation)
	case "":
		return fmt.Errorf("%s operation failed: %w", operation, err)
	default:
		return fmt.Errorf("%s operation failed (code: %s): %w", operation, resp.Code, err)
	}
}

// Store uploads content under a unique key inside folder.
func (s *MinioStorage) Store(ctx context.Context, r io.Reader, size int64, name, folder string) (*Object, error) {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	if r == nil {
		return nil, ErrNilReader
	}

	key, err := ObjectKey(folder, name)
	if err != nil {
		return nil, err
	}

	contentType := ContentType(name)
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, classifyMinioError(err, "upload file")
	}

	written := info.Size
	if written == 0 && size > 0 {
		written = size
	}

	return &Object{
		Location:    key,
		Size:        written,
		ContentType: contentType,
	}, nil
}

// Retrieve opens the object body. GetObject is lazy in minio-go, so the
// object is stat'ed first to report ErrFileNotFound up front.
func (s *MinioStorage) Retrieve(ctx context.Context, location string) (io.ReadCloser, error) {
	key, err := cleanKey(location)
	if err != nil {
		return nil, err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, classifyMinioError(err, "check file")
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinioError(err, "download file")
	}

	return obj, nil
}

// Delete removes a single object.
func (s *MinioStorage) Delete(ctx context.Context, location string) error {
	key, err := cleanKey(location)
	if err != nil {
		return err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return classifyMinioError(err, "check file")
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classifyMinioError(err, "delete file")
	}

	return nil
}

// List returns all objects whose key starts with prefix (recursive).
func (s *MinioStorage) List(ctx context.Context, prefix string) ([]Entry, error) {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // Stops the listing goroutine on early return

	var entries []Entry
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, classifyMinioError(obj.Err, "list files")
		}
		entries = append(entries, Entry{
			Name:         obj.Key,
			Path:         obj.Key,
			Size:         obj.Size,
			LastModified: formatTime(obj.LastModified),
		})
	}

	return entries, nil
}

// MaxLinkTTL reports the SigV4 presign limit.
func (s *MinioStorage) MaxLinkTTL() time.Duration { return MaxPresignTTL }

// SignedURL returns a presigned GET URL valid for ttl, at most MaxPresignTTL.
func (s *MinioStorage) SignedURL(ctx context.Context, location string, ttl time.Duration) (string, error) {
	key, err := cleanKey(location)
	if err != nil {
		return "", err
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, min(ttl, MaxPresignTTL), nil)
	if err != nil {
		return "", errors.Join(ErrSignFailed, classifyMinioError(err, "presign file"))
	}

	return u.String(), nil
}
