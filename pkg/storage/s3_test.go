package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tempshare/pkg/storage"
)

// MockS3Client is a mock implementation of the S3Client interface
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

// MockS3Presigner is a mock implementation of the S3Presigner interface
type MockS3Presigner struct {
	mock.Mock
}

func (m *MockS3Presigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

func testS3Config() storage.S3Config {
	return storage.S3Config{
		Bucket:      "test-bucket",
		Region:      "us-east-1",
		AccessKeyID: "test-key",
		SecretKey:   "test-secret",
	}
}

func TestNewS3Storage(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		s, err := storage.NewS3Storage(context.Background(), testS3Config())
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, storage.ProviderS3, s.Provider())
		assert.True(t, s.Capabilities().Has(storage.CapList|storage.CapSignedURL))
	})

	t.Run("with custom endpoint", func(t *testing.T) {
		t.Parallel()
		cfg := testS3Config()
		cfg.Endpoint = "http://localhost:9000"
		cfg.ForcePathStyle = true

		s, err := storage.NewS3Storage(context.Background(), cfg)
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("missing bucket", func(t *testing.T) {
		t.Parallel()
		cfg := testS3Config()
		cfg.Bucket = ""

		s, err := storage.NewS3Storage(context.Background(), cfg)
		require.ErrorIs(t, err, storage.ErrInvalidConfig)
		assert.Nil(t, s)
	})

	t.Run("enabled requires credentials", func(t *testing.T) {
		t.Parallel()
		assert.True(t, testS3Config().Enabled())
		assert.False(t, storage.S3Config{Bucket: "b"}.Enabled())
	})
}

func TestS3Storage_Store(t *testing.T) {
	t.Parallel()

	t.Run("uploads with content type and length", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToString(in.Bucket) == "test-bucket" &&
				strings.HasPrefix(aws.ToString(in.Key), "docs/") &&
				strings.HasSuffix(aws.ToString(in.Key), "_report.pdf") &&
				aws.ToString(in.ContentType) == "application/pdf" &&
				aws.ToInt64(in.ContentLength) == 5
		}), mock.Anything).Return(&s3.PutObjectOutput{}, nil)

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		obj, err := s.Store(context.Background(), strings.NewReader("hello"), 5, "report.pdf", "docs")
		require.NoError(t, err)
		assert.Equal(t, int64(5), obj.Size)
		assert.Equal(t, "application/pdf", obj.ContentType)
		assert.True(t, strings.HasPrefix(obj.Location, "docs/"))
		client.AssertExpectations(t)
	})

	t.Run("nil reader", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		_, err = s.Store(context.Background(), nil, 0, "a.txt", "")
		require.ErrorIs(t, err, storage.ErrNilReader)
	})

	t.Run("access denied", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"})

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		_, err = s.Store(context.Background(), strings.NewReader("x"), 1, "a.txt", "")
		require.ErrorIs(t, err, storage.ErrAccessDenied)
	})

	t.Run("traversal in folder", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		_, err = s.Store(context.Background(), strings.NewReader("x"), 1, "a.txt", "../etc")
		require.ErrorIs(t, err, storage.ErrInvalidPath)
		client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestS3Storage_Retrieve(t *testing.T) {
	t.Parallel()

	t.Run("returns body", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return aws.ToString(in.Key) == "docs/a.txt"
		}), mock.Anything).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("content"))}, nil)

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		rc, err := s.Retrieve(context.Background(), "docs/a.txt")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("missing object", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("GetObject", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &types.NoSuchKey{})

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		_, err = s.Retrieve(context.Background(), "docs/a.txt")
		require.ErrorIs(t, err, storage.ErrFileNotFound)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("GetObject", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, context.DeadlineExceeded)

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		_, err = s.Retrieve(context.Background(), "a.txt")
		require.ErrorIs(t, err, storage.ErrOperationTimeout)
	})
}

func TestS3Storage_Delete(t *testing.T) {
	t.Parallel()

	t.Run("deletes existing object", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("HeadObject", mock.Anything, mock.Anything, mock.Anything).Return(&s3.HeadObjectOutput{}, nil)
		client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
			return aws.ToString(in.Key) == "a.txt"
		}), mock.Anything).Return(&s3.DeleteObjectOutput{}, nil)

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		require.NoError(t, s.Delete(context.Background(), "/a.txt"))
		client.AssertExpectations(t)
	})

	t.Run("missing object", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("HeadObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, &types.NotFound{})

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		err = s.Delete(context.Background(), "a.txt")
		require.ErrorIs(t, err, storage.ErrFileNotFound)
		client.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestS3Storage_List(t *testing.T) {
	t.Parallel()

	t.Run("follows continuation tokens", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

		client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
			return aws.ToString(in.Prefix) == "docs" && in.ContinuationToken == nil
		}), mock.Anything).Return(&s3.ListObjectsV2Output{
			Contents:              []types.Object{{Key: aws.String("docs/a.txt"), Size: aws.Int64(3), LastModified: aws.Time(modified)}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("page-2"),
		}, nil).Once()
		client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
			return aws.ToString(in.ContinuationToken) == "page-2"
		}), mock.Anything).Return(&s3.ListObjectsV2Output{
			Contents:    []types.Object{{Key: aws.String("docs/b.txt"), Size: aws.Int64(4)}},
			IsTruncated: aws.Bool(false),
		}, nil).Once()

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		entries, err := s.List(context.Background(), "/docs/")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "docs/a.txt", entries[0].Path)
		assert.Equal(t, int64(3), entries[0].Size)
		assert.Equal(t, "2024-01-02T03:04:05Z", entries[0].LastModified)
		assert.Empty(t, entries[1].LastModified)
		client.AssertExpectations(t)
	})

	t.Run("missing bucket", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("ListObjectsV2", mock.Anything, mock.Anything, mock.Anything).Return(nil, &types.NoSuchBucket{})

		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(client))
		require.NoError(t, err)

		_, err = s.List(context.Background(), "")
		require.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestS3Storage_SignedURL(t *testing.T) {
	t.Parallel()

	t.Run("presigns with ttl", func(t *testing.T) {
		t.Parallel()
		presigner := new(MockS3Presigner)
		presigner.On("PresignGetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
			return aws.ToString(in.Key) == "docs/a.txt"
		}), mock.MatchedBy(func(fns []func(*s3.PresignOptions)) bool {
			opts := &s3.PresignOptions{}
			for _, fn := range fns {
				fn(opts)
			}
			return opts.Expires == 15*time.Minute
		})).Return(&v4.PresignedHTTPRequest{URL: "https://signed.example.com/a"}, nil)

		s, err := storage.NewS3Storage(context.Background(), testS3Config(),
			storage.WithS3Client(new(MockS3Client)),
			storage.WithS3Presigner(presigner),
		)
		require.NoError(t, err)

		u, err := s.SignedURL(context.Background(), "docs/a.txt", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "https://signed.example.com/a", u)
	})

	t.Run("ttl beyond the presign limit is clamped", func(t *testing.T) {
		t.Parallel()
		presigner := new(MockS3Presigner)
		presigner.On("PresignGetObject", mock.Anything, mock.Anything, mock.MatchedBy(func(fns []func(*s3.PresignOptions)) bool {
			opts := &s3.PresignOptions{}
			for _, fn := range fns {
				fn(opts)
			}
			return opts.Expires == storage.MaxPresignTTL
		})).Return(&v4.PresignedHTTPRequest{URL: "https://signed.example.com/b"}, nil)

		s, err := storage.NewS3Storage(context.Background(), testS3Config(),
			storage.WithS3Client(new(MockS3Client)),
			storage.WithS3Presigner(presigner),
		)
		require.NoError(t, err)
		assert.Equal(t, storage.MaxPresignTTL, storage.LinkTTL(s, 30*24*time.Hour))
		assert.Equal(t, time.Hour, storage.LinkTTL(s, time.Hour))

		u, err := s.SignedURL(context.Background(), "b.txt", 30*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "https://signed.example.com/b", u)
		presigner.AssertExpectations(t)
	})

	t.Run("presign failure", func(t *testing.T) {
		t.Parallel()
		presigner := new(MockS3Presigner)
		presigner.On("PresignGetObject", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("boom"))

		s, err := storage.NewS3Storage(context.Background(), testS3Config(),
			storage.WithS3Client(new(MockS3Client)),
			storage.WithS3Presigner(presigner),
		)
		require.NoError(t, err)

		_, err = s.SignedURL(context.Background(), "a.txt", time.Minute)
		require.ErrorIs(t, err, storage.ErrSignFailed)
	})

	t.Run("no presigner with injected client", func(t *testing.T) {
		t.Parallel()
		s, err := storage.NewS3Storage(context.Background(), testS3Config(), storage.WithS3Client(new(MockS3Client)))
		require.NoError(t, err)

		_, err = s.SignedURL(context.Background(), "a.txt", time.Minute)
		require.ErrorIs(t, err, storage.ErrInvalidConfig)
	})
}
