package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// AzureClient is the subset of *azblob.Client used by AzureStorage.
type AzureClient interface {
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	DeleteBlob(ctx context.Context, containerName, blobName string, o *azblob.DeleteBlobOptions) (azblob.DeleteBlobResponse, error)
	NewListBlobsFlatPager(containerName string, o *azblob.ListBlobsFlatOptions) *runtime.Pager[azblob.ListBlobsFlatResponse]
}

// AzureSASSigner issues a read-only SAS URL for a blob.
type AzureSASSigner func(container, blobName string, expiry time.Time) (string, error)

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	ConnectionString string `env:"AZURE_STORAGE_CONNECTION_STRING"`
	Container        string `env:"AZURE_STORAGE_CONTAINER_NAME"`
}

// Enabled reports whether enough settings are present to register the provider.
func (c AzureConfig) Enabled() bool {
	return c.ConnectionString != "" && c.Container != ""
}

// AzureStorage implements Storage for Azure Blob Storage.
type AzureStorage struct {
	client        AzureClient
	signer        AzureSASSigner
	container     string
	uploadTimeout time.Duration
}

// AzureOption configures AzureStorage.
type AzureOption func(*azureOptions)

type azureOptions struct {
	client        AzureClient
	signer        AzureSASSigner
	uploadTimeout time.Duration
}

// WithAzureClient sets a pre-configured client. Useful for testing with mocks.
func WithAzureClient(c AzureClient) AzureOption {
	return func(o *azureOptions) { o.client = c }
}

// WithAzureSASSigner overrides the signer used by SignedURL.
func WithAzureSASSigner(s AzureSASSigner) AzureOption {
	return func(o *azureOptions) { o.signer = s }
}

// WithAzureUploadTimeout sets the timeout for store operations.
func WithAzureUploadTimeout(d time.Duration) AzureOption {
	return func(o *azureOptions) { o.uploadTimeout = d }
}

// NewAzureStorage creates the azure_blob provider from a connection string.
// The connection string must carry an account key for SAS links to work.
func NewAzureStorage(cfg AzureConfig, opts ...AzureOption) (*AzureStorage, error) {
	if cfg.Container == "" {
		return nil, ErrInvalidConfig
	}

	options := &azureOptions{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	signer := options.signer
	if client == nil {
		if cfg.ConnectionString == "" {
			return nil, ErrInvalidConfig
		}
		c, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}
		client = c
		if signer == nil {
			signer = clientSASSigner(c)
		}
	}

	return &AzureStorage{
		client:        client,
		signer:        signer,
		container:     cfg.Container,
		uploadTimeout: options.uploadTimeout,
	}, nil
}

func clientSASSigner(c *azblob.Client) AzureSASSigner {
	return func(container, blobName string, expiry time.Time) (string, error) {
		bc := c.ServiceClient().NewContainerClient(container).NewBlobClient(blobName)
		return bc.GetSASURL(sas.BlobPermissions{Read: true}, expiry, &blob.GetSASURLOptions{
			StartTime: to.Ptr(time.Now().UTC().Add(-5 * time.Minute)),
		})
	}
}

// Provider returns ProviderAzure.
func (s *AzureStorage) Provider() string { return ProviderAzure }

// Capabilities reports listing and signed links.
func (s *AzureStorage) Capabilities() Capability { return CapList | CapSignedURL }

// classifyAzureError converts azblob errors to package errors.
func classifyAzureError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", ErrOperationCanceled, operation)
	}

	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return fmt.Errorf("%w: %s", ErrFileNotFound, err)
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		return ErrBucketNotFound
	case bloberror.HasCode(err,
		bloberror.AuthorizationFailure,
		bloberror.AuthenticationFailed,
		bloberror.AuthorizationPermissionMismatch,
	):
		return fmt.Errorf("%w: %s operation", ErrAccessDenied, operation)
	case bloberror.HasCode(err, bloberror.OperationTimedOut):
		return fmt.Errorf("%w: %s operation", ErrRequestTimeout, operation)
	case bloberror.HasCode(err, bloberror.ServerBusy):
		return fmt.Errorf("%w: %s operation", ErrServiceUnavailable, operation)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("%s operation failed (code: %s): %w", operation, respErr.ErrorCode, err)
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}

// countingReader tracks bytes consumed by an SDK that does not report them.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Store uploads content as a block blob under a unique key inside folder.
func (s *AzureStorage) Store(ctx context.Context, r io.Reader, _ int64, name, folder string) (*Object, error) {
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
	body := &countingReader{r: r}
	_, err = s.client.UploadStream(ctx, s.container, key, body, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	if err != nil {
		return nil, classifyAzureError(err, "upload file")
	}

	return &Object{
		Location:    key,
		Size:        body.n,
		ContentType: contentType,
	}, nil
}

// Retrieve opens the blob body.
func (s *AzureStorage) Retrieve(ctx context.Context, location string) (io.ReadCloser, error) {
	key, err := cleanKey(location)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		return nil, classifyAzureError(err, "download file")
	}

	return resp.Body, nil
}

// Delete removes a single blob.
func (s *AzureStorage) Delete(ctx context.Context, location string) error {
	key, err := cleanKey(location)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteBlob(ctx, s.container, key, nil); err != nil {
		return classifyAzureError(err, "delete file")
	}

	return nil
}

// List returns all blobs whose name starts with prefix.
func (s *AzureStorage) List(ctx context.Context, prefix string) ([]Entry, error) {
	prefix, err := cleanKey(prefix)
	if err != nil {
		return nil, err
	}

	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}

	var entries []Entry
	pager := s.client.NewListBlobsFlatPager(s.container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, classifyAzureError(err, "list files")
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			entry := Entry{Name: *item.Name, Path: *item.Name}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					entry.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					entry.LastModified = formatTime(*item.Properties.LastModified)
				}
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// SignedURL returns a read-only SAS URL valid for ttl.
func (s *AzureStorage) SignedURL(_ context.Context, location string, ttl time.Duration) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("%w: no SAS signer configured", ErrSignFailed)
	}

	key, err := cleanKey(location)
	if err != nil {
		return "", err
	}

	u, err := s.signer(s.container, key, time.Now().UTC().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignFailed, err)
	}

	return u, nil
}
