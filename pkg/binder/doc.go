// Package binder fills request structs from HTTP request data.
//
// Three binders are provided, each reading its own struct tag:
//
//   - Form: `form` and `file` tags, urlencoded or multipart bodies
//   - Query: `query` tags
//   - Path: `path` tags, through a router-specific extractor
//
// Binders are combined with handler.WithBinders and run in order:
//
//	type UploadRequest struct {
//		File       *multipart.FileHeader `file:"file"`
//		Provider   string                `form:"provider"`
//		Expiration *int                  `form:"expiration_minutes"`
//	}
//
// Uploaded filenames are stripped of directory components before they reach
// the handler. Failures wrap one of the package errors; IsBindingError
// reports whether an error came from binding.
package binder
