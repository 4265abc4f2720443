// Package share implements the upload orchestrator and the retrieval gateway
// on top of the registry and the storage backends.
//
// Uploads are validated before any backend call, stored, and only then
// registered:
//
//	res, err := svc.Upload(ctx, share.UploadInput{
//		Name:              "report.pdf",
//		Body:              f,
//		Size:              size,
//		ExpirationMinutes: 60,
//		AccessLimit:       3,
//	})
//
// A stored object that cannot be registered is reported as an
// *OrphanedObjectError, distinct from a plain backend failure.
//
// Retrievals open the backend object first and evaluate admission second.
// Admission reserves an access slot; the access counter is incremented by
// Commit after the bytes are delivered, and Release returns the slot of an
// abandoned delivery:
//
//	d, err := svc.Open(ctx, id)
//	if err != nil {
//		return err
//	}
//	defer d.Body.Close()
//	defer svc.Release(d)
//	if _, err := io.Copy(w, d.Body); err != nil {
//		return err
//	}
//	svc.Commit(ctx, d)
//
// Errors match the package sentinels with errors.Is: ErrNotFound, ErrExpired,
// ErrQuotaExceeded, ErrUnsupported, ErrBackend, ErrOrphanedObject and
// ErrInternal. Caller mistakes are validator.ValidationErrors.
package share
