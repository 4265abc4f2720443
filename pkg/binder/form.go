package binder

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"reflect"
	"strings"
)

// DefaultMaxMemory is the default maximum memory used for parsing multipart forms (10MB).
const DefaultMaxMemory = 10 << 20 // 10 MB

// Form creates a binder for application/x-www-form-urlencoded and
// multipart/form-data bodies. Multipart parts above maxMemory spill to
// temporary files; zero selects DefaultMaxMemory.
//
// Supported struct tags:
//   - `form:"name"` - binds to form field "name"
//   - `file:"name"` - binds to uploaded file "name"
//   - `-` skips the field
//
// File fields must be *multipart.FileHeader or []*multipart.FileHeader.
//
// Example:
//
//	type UploadRequest struct {
//		File     *multipart.FileHeader `file:"file"`
//		Provider string                `form:"provider"`
//		Limit    *int                  `form:"access_limit"`
//	}
//
//	r.Post("/upload-file", handler.Wrap(upload,
//		handler.WithBinders(binder.Form(0)),
//	))
func Form(maxMemory int64) func(r *http.Request, v any) error {
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}
	return func(r *http.Request, v any) error {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/x-www-form-urlencoded or multipart/form-data", ErrMissingContentType)
		}

		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("%w: malformed content type", ErrFailedToParseForm)
		}

		var values map[string][]string
		var files map[string][]*multipart.FileHeader

		switch mediaType {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return formError(err)
			}
			values = r.Form

		case "multipart/form-data":
			if !validateBoundary(params["boundary"]) {
				return fmt.Errorf("%w: invalid boundary parameter", ErrFailedToParseForm)
			}
			if err := r.ParseMultipartForm(maxMemory); err != nil {
				return formError(err)
			}
			values = r.MultipartForm.Value
			files = r.MultipartForm.File

		default:
			return fmt.Errorf("%w: got %s, expected application/x-www-form-urlencoded or multipart/form-data", ErrUnsupportedMediaType, mediaType)
		}

		return bindForm(v, values, files)
	}
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", ErrRequestTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", ErrFailedToParseForm, err)
}

// validateBoundary checks a multipart boundary against RFC 2046:
// 1 to 70 characters from the bchars set, not ending in a space.
func validateBoundary(boundary string) bool {
	if boundary == "" || len(boundary) > 70 || strings.HasSuffix(boundary, " ") {
		return false
	}
	for _, c := range boundary {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.ContainsRune("'()+_,-./:=? ", c):
		default:
			return false
		}
	}
	return true
}

// bindForm binds `form` fields from values and `file` fields from files.
func bindForm(v any, values map[string][]string, files map[string][]*multipart.FileHeader) error {
	lookup := func(name string) []string { return values[name] }
	if err := bind(v, "form", lookup, ErrFailedToParseForm); err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	rv, _ := structOf(v)
	for name, field := range tagged(rv, "file") {
		headers := files[name]
		if len(headers) == 0 {
			continue
		}
		if err := setFiles(field, headers); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFailedToParseForm, name, err)
		}
	}
	return nil
}

var (
	fileHeaderType  = reflect.TypeFor[*multipart.FileHeader]()
	fileHeadersType = reflect.TypeFor[[]*multipart.FileHeader]()
)

// setFiles assigns uploaded files to a *multipart.FileHeader or
// []*multipart.FileHeader field. Client supplied names are reduced to
// their base name first.
func setFiles(field reflect.Value, headers []*multipart.FileHeader) error {
	for _, fh := range headers {
		fh.Filename = baseFilename(fh.Filename)
	}

	switch field.Type() {
	case fileHeaderType:
		field.Set(reflect.ValueOf(headers[0]))
	case fileHeadersType:
		field.Set(reflect.ValueOf(headers))
	default:
		return fmt.Errorf("file field must be *multipart.FileHeader or []*multipart.FileHeader, got %s", field.Type())
	}
	return nil
}

// baseFilename strips directories (either separator) and NUL bytes.
func baseFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.ReplaceAll(path.Base(name), "\x00", "")
	switch name {
	case "", ".", "..", "/":
		return "unnamed"
	}
	return name
}
