package handler

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type streamResponse struct {
	body        io.Reader
	contentType string
	filename    string
	size        int64
	onComplete  func()
}

// StreamOption configures a Stream response.
type StreamOption func(*streamResponse)

// WithContentLength sets Content-Length. Negative sizes are ignored.
func WithContentLength(size int64) StreamOption {
	return func(s *streamResponse) {
		s.size = size
	}
}

// WithInlineFilename sets Content-Disposition to inline display of name.
func WithInlineFilename(name string) StreamOption {
	return func(s *streamResponse) {
		s.filename = name
	}
}

// OnComplete registers fn to run once the whole body was written.
func OnComplete(fn func()) StreamOption {
	return func(s *streamResponse) {
		s.onComplete = fn
	}
}

// Stream copies body to the client with status 200. The caller keeps
// ownership of body and closes it. A copy failure is reported wrapped in
// ErrResponseStarted and OnComplete is not called.
func Stream(body io.Reader, contentType string, opts ...StreamOption) Response {
	s := &streamResponse{body: body, contentType: contentType, size: -1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *streamResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	h := w.Header()
	h.Set("Content-Type", s.contentType)
	h.Set("X-Content-Type-Options", "nosniff")
	if s.filename != "" {
		h.Set("Content-Disposition", ContentDisposition("inline", s.filename))
	}
	if s.size >= 0 {
		h.Set("Content-Length", strconv.FormatInt(s.size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, s.body); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseStarted, err)
	}
	if s.onComplete != nil {
		s.onComplete()
	}
	return nil
}

// ContentDisposition formats a Content-Disposition header value with a
// quoted filename. Names outside printable ASCII also get an RFC 5987
// filename* parameter.
func ContentDisposition(disposition, filename string) string {
	var ascii strings.Builder
	plain := true
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\':
			ascii.WriteByte('\\')
			ascii.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			plain = false
		case r > 0x7e:
			plain = false
			ascii.WriteByte('_')
		default:
			ascii.WriteRune(r)
		}
	}

	v := disposition + `; filename="` + ascii.String() + `"`
	if !plain {
		v += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return v
}
