package storage_test

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tempshare/pkg/storage"
)

// MockMinioClient is a mock implementation of the MinioClient interface
type MockMinioClient struct {
	mock.Mock
}

func (m *MockMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinioClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.Object), args.Error(1)
}

func (m *MockMinioClient) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockMinioClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Error(0)
}

func (m *MockMinioClient) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinioClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expires, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

func objectChan(items ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

func newTestMinio(t *testing.T, client storage.MinioClient) *storage.MinioStorage {
	t.Helper()
	s, err := storage.NewS3CompatibleStorage(storage.S3CompatibleConfig{
		Endpoint:  "localhost:9000",
		Bucket:    "files",
		AccessKey: "key",
		SecretKey: "secret",
	}, storage.WithMinioClient(client))
	require.NoError(t, err)
	return s
}

func TestNewMinioStorage(t *testing.T) {
	t.Parallel()

	t.Run("s3 compatible", func(t *testing.T) {
		t.Parallel()
		s, err := storage.NewS3CompatibleStorage(storage.S3CompatibleConfig{
			Endpoint:  "localhost:9000",
			Bucket:    "files",
			AccessKey: "key",
			SecretKey: "secret",
		})
		require.NoError(t, err)
		assert.Equal(t, storage.ProviderS3Compatible, s.Provider())
	})

	t.Run("gcs interop", func(t *testing.T) {
		t.Parallel()
		cfg := storage.GCSConfig{Bucket: "files", AccessKey: "GOOG1", SecretKey: "secret"}
		require.True(t, cfg.Enabled())

		s, err := storage.NewGCSStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, storage.ProviderGCS, s.Provider())
		assert.True(t, s.Capabilities().Has(storage.CapSignedURL))
	})

	t.Run("missing bucket", func(t *testing.T) {
		t.Parallel()
		_, err := storage.NewS3CompatibleStorage(storage.S3CompatibleConfig{Endpoint: "localhost:9000"})
		require.ErrorIs(t, err, storage.ErrInvalidConfig)
	})

	t.Run("missing endpoint", func(t *testing.T) {
		t.Parallel()
		_, err := storage.NewMinioStorage(storage.ProviderS3Compatible, storage.MinioConfig{Bucket: "files"})
		require.ErrorIs(t, err, storage.ErrInvalidConfig)
	})
}

func TestMinioStorage_Store(t *testing.T) {
	t.Parallel()

	t.Run("uploads under folder", func(t *testing.T) {
		t.Parallel()
		client := new(MockMinioClient)
		client.On("PutObject", mock.Anything, "files", mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "shared/") && strings.HasSuffix(key, "_clip.mp4")
		}), mock.Anything, int64(7), mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "video/mp4"
		})).Return(minio.UploadInfo{Size: 7}, nil)

		s := newTestMinio(t, client)
		obj, err := s.Store(context.Background(), strings.NewReader("content"), 7, "clip.mp4", "shared")
		require.NoError(t, err)
		assert.Equal(t, int64(7), obj.Size)
		assert.Equal(t, "video/mp4", obj.ContentType)
		client.AssertExpectations(t)
	})

	t.Run("classifies access denied", func(t *testing.T) {
		t.Parallel()
		client := new(MockMinioClient)
		client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, minio.ErrorResponse{Code: "AccessDenied"})

		s := newTestMinio(t, client)
		_, err := s.Store(context.Background(), strings.NewReader("x"), 1, "a.txt", "")
		require.ErrorIs(t, err, storage.ErrAccessDenied)
	})
}

func TestMinioStorage_Retrieve(t *testing.T) {
	t.Parallel()

	t.Run("missing object is reported before download", func(t *testing.T) {
		t.Parallel()
		client := new(MockMinioClient)
		client.On("StatObject", mock.Anything, "files", "a.txt", mock.Anything).
			Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

		s := newTestMinio(t, client)
		_, err := s.Retrieve(context.Background(), "a.txt")
		require.ErrorIs(t, err, storage.ErrFileNotFound)
		client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("traversal rejected", func(t *testing.T) {
		t.Parallel()
		s := newTestMinio(t, new(MockMinioClient))
		_, err := s.Retrieve(context.Background(), "../a.txt")
		require.ErrorIs(t, err, storage.ErrInvalidPath)
	})
}

func TestMinioStorage_Delete(t *testing.T) {
	t.Parallel()

	t.Run("removes existing object", func(t *testing.T) {
		t.Parallel()
		client := new(MockMinioClient)
		client.On("StatObject", mock.Anything, "files", "a.txt", mock.Anything).Return(minio.ObjectInfo{Key: "a.txt"}, nil)
		client.On("RemoveObject", mock.Anything, "files", "a.txt", mock.Anything).Return(nil)

		s := newTestMinio(t, client)
		require.NoError(t, s.Delete(context.Background(), "a.txt"))
		client.AssertExpectations(t)
	})

	t.Run("missing object", func(t *testing.T) {
		t.Parallel()
		client := new(MockMinioClient)
		client.On("StatObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

		s := newTestMinio(t, client)
		require.ErrorIs(t, s.Delete(context.Background(), "a.txt"), storage.ErrFileNotFound)
	})
}

func TestMinioStorage_List(t *testing.T) {
	t.Parallel()

	t.Run("recursive prefix listing", func(t *testing.T) {
		t.Parallel()
		modified := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		client := new(MockMinioClient)
		client.On("ListObjects", mock.Anything, "files", minio.ListObjectsOptions{Prefix: "docs", Recursive: true}).
			Return(objectChan(
				minio.ObjectInfo{Key: "docs/a.txt", Size: 3, LastModified: modified},
				minio.ObjectInfo{Key: "docs/b/c.txt", Size: 4},
			))

		s := newTestMinio(t, client)
		entries, err := s.List(context.Background(), "docs/")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "docs/a.txt", entries[0].Path)
		assert.Equal(t, "2024-05-06T07:08:09Z", entries[0].LastModified)
		assert.Equal(t, int64(4), entries[1].Size)
	})

	t.Run("stream error", func(t *testing.T) {
		t.Parallel()
		client := new(MockMinioClient)
		client.On("ListObjects", mock.Anything, mock.Anything, mock.Anything).
			Return(objectChan(minio.ObjectInfo{Err: minio.ErrorResponse{Code: "NoSuchBucket"}}))

		s := newTestMinio(t, client)
		_, err := s.List(context.Background(), "")
		require.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestMinioStorage_SignedURL(t *testing.T) {
	t.Parallel()

	u, err := url.Parse("https://minio.example.com/files/a.txt?X-Amz-Signature=abc")
	require.NoError(t, err)

	client := new(MockMinioClient)
	client.On("PresignedGetObject", mock.Anything, "files", "a.txt", 30*time.Minute, url.Values(nil)).Return(u, nil)

	s := newTestMinio(t, client)
	got, err := s.SignedURL(context.Background(), "a.txt", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, u.String(), got)
}

func TestMinioStorage_SignedURL_Clamped(t *testing.T) {
	t.Parallel()
	u, err := url.Parse("https://minio.example.com/files/a.txt?X-Amz-Signature=def")
	require.NoError(t, err)

	client := new(MockMinioClient)
	client.On("PresignedGetObject", mock.Anything, "files", "a.txt", storage.MaxPresignTTL, url.Values(nil)).Return(u, nil)

	s := newTestMinio(t, client)
	_, err = s.SignedURL(context.Background(), "a.txt", 30*24*time.Hour)
	require.NoError(t, err)
	client.AssertExpectations(t)
}
