// Package handler provides typed HTTP handlers.
//
// A HandlerFunc receives a request struct filled by binders and returns a
// Response. Wrap turns it into an http.HandlerFunc:
//
//	type FileRequest struct {
//		ID string `path:"id"`
//	}
//
//	func getFile(ctx handler.Context, req FileRequest) handler.Response {
//		view, err := svc.Get(ctx, req.ID)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(view)
//	}
//
//	r.Get("/files/{id}", handler.Wrap(getFile,
//		handler.WithBinders(binder.Path(chi.URLParam)),
//		handler.WithErrorHandler(errorHandler),
//	))
//
// # Responses
//
//	handler.JSON(v)                          // 200 with v encoded as JSON
//	handler.Success(map[string]any{...})     // {"success": true, ...}
//	handler.Stream(body, contentType, opts...) // raw bytes
//	handler.Error(err)                       // delegated to the ErrorHandler
//
// # Errors
//
// NewErrorHandler renders {"success": false, "error": "..."} bodies. The
// status comes from the first Classifier that recognizes the error, then from
// Classify, which knows HTTPError, validator.ValidationErrors and binder
// errors. Unknown errors become 500 without exposing their text.
package handler
