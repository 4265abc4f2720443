package handler

import (
	"errors"
	"net/http"
)

// HandlerFunc handles a request already bound into R.
type HandlerFunc[R any] func(ctx Context, req R) Response

// Response renders itself to an http.ResponseWriter.
// A returned error goes to the ErrorHandler.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind fills v from r. The binder package provides the implementations.
type Bind func(r *http.Request, v any) error

// ErrorHandler reports binding, handler and rendering errors to the client.
type ErrorHandler func(ctx Context, err error)

// Option configures Wrap.
type Option func(*route)

type route struct {
	binders []Bind
	onError ErrorHandler
}

// WithBinders appends binders. They run in order and each reads only its own
// struct tags, so path, query and form binders can be combined.
func WithBinders(binders ...Bind) Option {
	return func(rt *route) {
		for _, b := range binders {
			if b != nil {
				rt.binders = append(rt.binders, b)
			}
		}
	}
}

// WithErrorHandler replaces the default error handler, which writes the
// classified JSON body without logging.
func WithErrorHandler(h ErrorHandler) Option {
	return func(rt *route) {
		if h != nil {
			rt.onError = h
		}
	}
}

func writeClassified(ctx Context, err error) {
	if errors.Is(err, ErrResponseStarted) {
		return
	}
	_ = writeError(ctx.ResponseWriter(), Classify(err), ctx.RequestID())
}

// Wrap adapts h to http.HandlerFunc. A zero R is bound by every binder in
// turn; the first binding failure short-circuits to the error handler.
//
//	r.Get("/file/{id}", handler.Wrap(fetch,
//		handler.WithBinders(binder.Path(chi.URLParam)),
//	))
func Wrap[R any](h HandlerFunc[R], opts ...Option) http.HandlerFunc {
	rt := route{onError: writeClassified}
	for _, opt := range opts {
		opt(&rt)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(w, r)

		var req R
		for _, bind := range rt.binders {
			if err := bind(r, &req); err != nil {
				rt.onError(ctx, err)
				return
			}
		}

		resp := h(ctx, req)
		if resp == nil {
			rt.onError(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			rt.onError(ctx, err)
		}
	}
}
