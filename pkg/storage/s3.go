package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of *s3.Client used by S3Storage.
type S3Client interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Presigner is the subset of *s3.PresignClient used for signed links.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Config configures the "aws_s3" provider.
type S3Config struct {
	Bucket         string `env:"AWS_S3_BUCKET_NAME"`
	Region         string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey      string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint       string `env:"AWS_S3_ENDPOINT"`
	ForcePathStyle bool   `env:"AWS_S3_FORCE_PATH_STYLE"`
}

// Enabled reports whether enough settings are present to register the provider.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretKey != ""
}

// S3Storage stores objects in one Amazon S3 bucket.
// It is safe for concurrent use.
type S3Storage struct {
	client        S3Client
	presigner     S3Presigner
	bucket        string
	uploadTimeout time.Duration
}

// S3Option configures S3Storage.
type S3Option func(*S3Storage)

// WithS3Client replaces the SDK client. No presigner is derived from it;
// pair with WithS3Presigner when signed links are needed.
func WithS3Client(client S3Client) S3Option {
	return func(s *S3Storage) { s.client = client }
}

// WithS3Presigner sets the presigner used by SignedURL.
func WithS3Presigner(p S3Presigner) S3Option {
	return func(s *S3Storage) { s.presigner = p }
}

// WithS3UploadTimeout bounds each Store call.
func WithS3UploadTimeout(d time.Duration) S3Option {
	return func(s *S3Storage) { s.uploadTimeout = d }
}

// NewS3Storage builds the adapter. Without WithS3Client it loads the default
// AWS config chain, preferring the static credentials in cfg when set.
func NewS3Storage(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: s3 bucket and region are required", ErrInvalidConfig)
	}

	s := &S3Storage{bucket: cfg.Bucket}
	for _, opt := range opts {
		opt(s)
	}
	if s.client != nil {
		return s, nil
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	s.client = client
	if s.presigner == nil {
		s.presigner = s3.NewPresignClient(client)
	}
	return s, nil
}

func (s *S3Storage) Provider() string { return ProviderS3 }

func (s *S3Storage) Capabilities() Capability { return CapList | CapSignedURL }

// s3Codes maps S3 error codes to package errors.
var s3Codes = map[string]error{
	"NoSuchKey":          ErrFileNotFound,
	"NotFound":           ErrFileNotFound,
	"NoSuchBucket":       ErrBucketNotFound,
	"AccessDenied":       ErrAccessDenied,
	"Forbidden":          ErrAccessDenied,
	"RequestTimeout":     ErrRequestTimeout,
	"SlowDown":           ErrServiceUnavailable,
	"ServiceUnavailable": ErrServiceUnavailable,
}

// s3Error classifies err from operation op. Typed SDK errors and smithy
// codes both go through s3Codes; the original error stays in the chain.
func s3Error(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: s3 %s", ErrOperationTimeout, op)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: s3 %s", ErrOperationCanceled, op)
	}

	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		noBucket *types.NoSuchBucket
		apiErr   smithy.APIError
	)
	code := ""
	switch {
	case errors.As(err, &noKey):
		code = "NoSuchKey"
	case errors.As(err, &notFound):
		code = "NotFound"
	case errors.As(err, &noBucket):
		code = "NoSuchBucket"
	case errors.As(err, &apiErr):
		code = apiErr.ErrorCode()
	}

	if sentinel, ok := s3Codes[code]; ok {
		return fmt.Errorf("%w: s3 %s: %w", sentinel, op, err)
	}
	return fmt.Errorf("s3 %s: %w", op, err)
}

// Store uploads r under a fresh key inside folder.
func (s *S3Storage) Store(ctx context.Context, r io.Reader, size int64, name, folder string) (*Object, error) {
	if r == nil {
		return nil, ErrNilReader
	}
	key, err := ObjectKey(folder, name)
	if err != nil {
		return nil, err
	}
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	obj := &Object{Location: key, Size: size, ContentType: ContentType(name)}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(obj.ContentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return nil, s3Error("put", err)
	}
	return obj, nil
}

// Retrieve opens the object body. The caller closes it.
func (s *S3Storage) Retrieve(ctx context.Context, location string) (io.ReadCloser, error) {
	key, err := cleanKey(location)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, s3Error("get", err)
	}
	return out.Body, nil
}

// Delete removes the object. S3 deletes succeed for missing keys, so a HEAD
// runs first to report ErrFileNotFound.
func (s *S3Storage) Delete(ctx context.Context, location string) error {
	key, err := cleanKey(location)
	if err != nil {
		return err
	}
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return s3Error("head", err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return s3Error("delete", err)
	}
	return nil
}

// List returns every object under prefix, following continuation tokens.
func (s *S3Storage) List(ctx context.Context, prefix string) ([]Entry, error) {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, s3Error("list", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			entries = append(entries, Entry{
				Name:         key,
				Path:         key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: formatTime(aws.ToTime(obj.LastModified)),
			})
		}
	}
	return entries, nil
}

// MaxLinkTTL reports the SigV4 presign limit.
func (s *S3Storage) MaxLinkTTL() time.Duration { return MaxPresignTTL }

// SignedURL presigns a GET for location valid for ttl, at most MaxPresignTTL.
func (s *S3Storage) SignedURL(ctx context.Context, location string, ttl time.Duration) (string, error) {
	if s.presigner == nil {
		return "", fmt.Errorf("%w: no s3 presigner", ErrInvalidConfig)
	}
	key, err := cleanKey(location)
	if err != nil {
		return "", err
	}
	req, err := s.presigner.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)},
		s3.WithPresignExpires(min(ttl, MaxPresignTTL)),
	)
	if err != nil {
		return "", errors.Join(ErrSignFailed, s3Error("presign", err))
	}
	return req.URL, nil
}
