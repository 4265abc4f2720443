package binder

import "net/http"

// Query creates a query string binder.
//
// Struct tags:
//   - `query:"name"` - binds to query parameter "name"
//   - `query:"-"`    - skips the field
//
// Untagged fields are left alone. Pointers mark optional parameters; slices
// accept repeated or comma-separated values. Empty values count as absent.
//
// Example:
//
//	type CloudFilesRequest struct {
//		Provider string `query:"provider"`
//		Prefix   string `query:"prefix"`
//	}
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		q := r.URL.Query()
		return bind(v, "query", func(name string) []string { return q[name] }, ErrFailedToParseQuery)
	}
}
