package binder

import (
	"fmt"
	"net/http"
)

// Path creates a path parameter binder. extractor returns the value of a
// named route parameter; with chi pass chi.URLParam.
//
// Only fields tagged `path:"name"` are bound.
//
// Example:
//
//	type FileRequest struct {
//		ID string `path:"id"`
//	}
//
//	r.Get("/file/{id}", handler.Wrap(fetch,
//		handler.WithBinders(binder.Path(chi.URLParam)),
//	))
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: no parameter extractor", ErrFailedToParsePath)
		}
		return bind(v, "path", func(name string) []string {
			return []string{extractor(r, name)}
		}, ErrFailedToParsePath)
	}
}
