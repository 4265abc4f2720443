package handler

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/tempshare/pkg/requestid"
)

// Context is the per-request value handed to every handler. It behaves as the
// request's context.Context and also exposes the raw request and writer for
// responses that need them, such as streaming file bodies.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	// RequestID returns the id assigned by requestid.Middleware, or "".
	RequestID() string
}

// NewContext binds w and r into a Context. Cancellation and values come from
// r.Context() as it was at the time of the call.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return requestContext{Context: r.Context(), w: w, r: r}
}

type requestContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

func (c requestContext) Request() *http.Request              { return c.r }
func (c requestContext) ResponseWriter() http.ResponseWriter { return c.w }
func (c requestContext) RequestID() string                   { return requestid.FromContext(c.Context) }
