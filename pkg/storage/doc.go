// Package storage provides the backend adapters that hold uploaded file content.
//
// Every backend satisfies the Storage interface: Store, Retrieve and Delete
// are mandatory, while List and SignedURL are optional and advertised through
// Capabilities. Adapters never know about expiration or access quotas; they
// move bytes and return a backend handle (the Location) that the caller
// records.
//
// # Providers
//
//   - LocalStorage ("local"): files under a bounded base directory.
//   - S3Storage ("aws_s3"): Amazon S3 through aws-sdk-go-v2, presigned links.
//   - MinioStorage ("s3_compatible", "google_cloud_storage"): any S3-compatible
//     endpoint through minio-go, including Cloud Storage HMAC interop.
//   - AzureStorage ("azure_blob"): block blobs with SAS links.
//   - DriveStorage ("google_drive"): Drive files shared by public link.
//
// Adapters are grouped in a Set keyed by provider name:
//
//	local, err := storage.NewLocalStorage("./temp_files")
//	if err != nil {
//		return err
//	}
//	set, err := storage.NewSet(local)
//	if err != nil {
//		return err
//	}
//
//	backend, err := set.Get("local")
//	obj, err := backend.Store(ctx, body, size, "report.pdf", "docs")
//
// # Keys
//
// Key-value backends store content under folder/<uuid>_<name>, so two uploads
// with the same name never collide. Keys containing ".." segments are rejected
// with ErrInvalidPath.
//
// # Errors
//
// Provider SDK errors are classified into package sentinels (ErrFileNotFound,
// ErrAccessDenied, ErrBucketNotFound, ErrOperationTimeout, ...) so callers can
// use errors.Is regardless of the backend.
package storage
