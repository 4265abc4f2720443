package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveFolderMimeType = "application/vnd.google-apps.folder"

// DriveClient is the narrow set of Drive v3 calls DriveStorage needs.
// NewDriveClient adapts a *drive.Service to it.
type DriveClient interface {
	CreateFile(ctx context.Context, meta *drive.File, media io.Reader) (*drive.File, error)
	GetFile(ctx context.Context, id string, fields ...googleapi.Field) (*drive.File, error)
	Download(ctx context.Context, id string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, id string) error
	ListFiles(ctx context.Context, query, pageToken string) (*drive.FileList, error)
	ShareWithAnyone(ctx context.Context, id string) error
}

type driveClient struct {
	svc *drive.Service
}

// NewDriveClient wraps a Drive service.
func NewDriveClient(svc *drive.Service) DriveClient {
	return &driveClient{svc: svc}
}

func (c *driveClient) CreateFile(ctx context.Context, meta *drive.File, media io.Reader) (*drive.File, error) {
	call := c.svc.Files.Create(meta).Fields("id", "name", "size", "webContentLink").Context(ctx)
	if media != nil {
		call = call.Media(media, googleapi.ContentType(meta.MimeType))
	}
	return call.Do()
}

func (c *driveClient) GetFile(ctx context.Context, id string, fields ...googleapi.Field) (*drive.File, error) {
	return c.svc.Files.Get(id).Fields(fields...).Context(ctx).Do()
}

func (c *driveClient) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *driveClient) DeleteFile(ctx context.Context, id string) error {
	return c.svc.Files.Delete(id).Context(ctx).Do()
}

func (c *driveClient) ListFiles(ctx context.Context, query, pageToken string) (*drive.FileList, error) {
	call := c.svc.Files.List().
		Q(query).
		Spaces("drive").
		Fields("nextPageToken", "files(id, name, mimeType, size, modifiedTime, webContentLink)").
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

func (c *driveClient) ShareWithAnyone(ctx context.Context, id string) error {
	_, err := c.svc.Permissions.Create(id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Fields("id").
		Context(ctx).
		Do()
	return err
}

// DriveConfig contains Google Drive service-account credentials.
// CredentialsFile takes precedence when both are set.
type DriveConfig struct {
	CredentialsFile string `env:"GOOGLE_DRIVE_CREDENTIALS"`
	CredentialsJSON string `env:"GOOGLE_DRIVE_CREDENTIALS_JSON"`
}

// Enabled reports whether credentials are present.
func (c DriveConfig) Enabled() bool {
	return c.CredentialsFile != "" || c.CredentialsJSON != ""
}

// DriveStorage implements Storage for Google Drive.
// Locations are Drive file IDs; folders are resolved by path and created on demand.
// Signed links are public webContentLink URLs and do not expire.
type DriveStorage struct {
	client        DriveClient
	uploadTimeout time.Duration
}

// DriveOption configures DriveStorage.
type DriveOption func(*driveOptions)

type driveOptions struct {
	client        DriveClient
	clientOptions []option.ClientOption
	uploadTimeout time.Duration
}

// WithDriveClient sets a pre-configured client. Useful for testing with mocks.
func WithDriveClient(c DriveClient) DriveOption {
	return func(o *driveOptions) { o.client = c }
}

// WithDriveClientOption adds a custom option for the Drive service.
func WithDriveClientOption(opt option.ClientOption) DriveOption {
	return func(o *driveOptions) { o.clientOptions = append(o.clientOptions, opt) }
}

// WithDriveUploadTimeout sets the timeout for store operations.
func WithDriveUploadTimeout(d time.Duration) DriveOption {
	return func(o *driveOptions) { o.uploadTimeout = d }
}

// NewDriveStorage creates the google_drive provider.
func NewDriveStorage(ctx context.Context, cfg DriveConfig, opts ...DriveOption) (*DriveStorage, error) {
	options := &driveOptions{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		clientOpts := []option.ClientOption{option.WithScopes(drive.DriveFileScope)}
		switch {
		case cfg.CredentialsFile != "":
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
		case cfg.CredentialsJSON != "":
			clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		default:
			return nil, ErrInvalidConfig
		}
		clientOpts = append(clientOpts, options.clientOptions...)

		svc, err := drive.NewService(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}
		client = NewDriveClient(svc)
	}

	return &DriveStorage{
		client:        client,
		uploadTimeout: options.uploadTimeout,
	}, nil
}

// Provider returns ProviderDrive.
func (s *DriveStorage) Provider() string { return ProviderDrive }

// Capabilities reports listing and signed links.
func (s *DriveStorage) Capabilities() Capability { return CapList | CapSignedURL }

// classifyDriveError converts googleapi errors to package errors.
func classifyDriveError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", ErrOperationCanceled, operation)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrFileNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s operation", ErrAccessDenied, operation)
		case http.StatusRequestTimeout:
			return fmt.Errorf("%w: %s operation", ErrRequestTimeout, operation)
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %s operation", ErrServiceUnavailable, operation)
		}
		return fmt.Errorf("%s operation failed (code: %d): %w", operation, gerr.Code, err)
	}

	return fmt.Errorf("%s operation failed: %w", operation, err)
}

// escapeQuery quotes a value for a Drive search query literal.
func escapeQuery(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

// findFolder walks folderPath from the Drive root and returns the ID of the
// last segment. When create is true, missing segments are created.
// An empty path yields an empty ID, meaning the root.
func (s *DriveStorage) findFolder(ctx context.Context, folderPath string, create bool) (string, error) {
	folderPath, err := cleanKey(folderPath)
	if err != nil || folderPath == "" {
		return "", err
	}

	parentID := ""
	for _, part := range strings.Split(folderPath, "/") {
		if part == "" || part == "." {
			continue
		}

		q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(part), driveFolderMimeType)
		if parentID != "" {
			q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
		}

		list, err := s.client.ListFiles(ctx, q, "")
		if err != nil {
			return "", classifyDriveError(err, "find folder")
		}
		if len(list.Files) > 0 {
			parentID = list.Files[0].Id
			continue
		}
		if !create {
			return "", fmt.Errorf("%w: %s", ErrDirectoryNotFound, folderPath)
		}

		meta := &drive.File{Name: part, MimeType: driveFolderMimeType}
		if parentID != "" {
			meta.Parents = []string{parentID}
		}
		folder, err := s.client.CreateFile(ctx, meta, nil)
		if err != nil {
			return "", classifyDriveError(err, "create folder")
		}
		parentID = folder.Id
	}

	return parentID, nil
}

// Store uploads content into folder (created on demand) and shares it with
// anyone holding the link. The returned location is the Drive file ID.
func (s *DriveStorage) Store(ctx context.Context, r io.Reader, _ int64, name, folder string) (*Object, error) {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	if r == nil {
		return nil, ErrNilReader
	}

	parentID, err := s.findFolder(ctx, folder, true)
	if err != nil {
		return nil, err
	}

	contentType := ContentType(name)
	meta := &drive.File{Name: SanitizeFilename(name), MimeType: contentType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	body := &countingReader{r: r}
	created, err := s.client.CreateFile(ctx, meta, body)
	if err != nil {
		return nil, classifyDriveError(err, "upload file")
	}

	if err := s.client.ShareWithAnyone(ctx, created.Id); err != nil {
		_ = s.client.DeleteFile(context.WithoutCancel(ctx), created.Id)
		return nil, classifyDriveError(err, "share file")
	}

	size := created.Size
	if size == 0 {
		size = body.n
	}

	return &Object{
		Location:    created.Id,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// Retrieve downloads the file content.
func (s *DriveStorage) Retrieve(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, ErrInvalidPath
	}

	body, err := s.client.Download(ctx, location)
	if err != nil {
		return nil, classifyDriveError(err, "download file")
	}
	return body, nil
}

// Delete removes the file permanently.
func (s *DriveStorage) Delete(ctx context.Context, location string) error {
	if location == "" {
		return ErrInvalidPath
	}

	if err := s.client.DeleteFile(ctx, location); err != nil {
		return classifyDriveError(err, "delete file")
	}
	return nil
}

// List returns files inside the folder named by prefix, or every file the
// account can see when prefix is empty. Folders themselves are skipped.
// A missing folder yields an empty listing.
func (s *DriveStorage) List(ctx context.Context, prefix string) ([]Entry, error) {
	folderID, err := s.findFolder(ctx, prefix, false)
	if err != nil {
		if errors.Is(err, ErrDirectoryNotFound) {
			return []Entry{}, nil
		}
		return nil, err
	}

	q := "trashed=false"
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(folderID))
	}

	var entries []Entry
	pageToken := ""
	for {
		list, err := s.client.ListFiles(ctx, q, pageToken)
		if err != nil {
			return nil, classifyDriveError(err, "list files")
		}
		for _, f := range list.Files {
			if f.MimeType == driveFolderMimeType {
				continue
			}
			entries = append(entries, Entry{
				Name:         f.Name,
				Path:         f.Id,
				Size:         f.Size,
				LastModified: f.ModifiedTime,
				URL:          f.WebContentLink,
			})
		}
		if list.NextPageToken == "" {
			break
		}
		pageToken = list.NextPageToken
	}

	return entries, nil
}

// SignedURL makes the file public and returns its download link.
// Drive has no expiring links, so ttl is ignored.
func (s *DriveStorage) SignedURL(ctx context.Context, location string, _ time.Duration) (string, error) {
	if location == "" {
		return "", ErrInvalidPath
	}

	if err := s.client.ShareWithAnyone(ctx, location); err != nil {
		return "", errors.Join(ErrSignFailed, classifyDriveError(err, "share file"))
	}

	f, err := s.client.GetFile(ctx, location, "webContentLink")
	if err != nil {
		return "", errors.Join(ErrSignFailed, classifyDriveError(err, "get file"))
	}
	if f.WebContentLink == "" {
		return "", fmt.Errorf("%w: no download link for %s", ErrSignFailed, location)
	}

	return f.WebContentLink, nil
}
