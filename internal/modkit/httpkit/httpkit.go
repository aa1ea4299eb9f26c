// Package httpkit is what modules mount routes with: envelope responses,
// the common middleware stack and bearer auth
package httpkit

import (
	"net/http"

	phttp "chatlens/internal/platform/net/http"
)

type (
	Envelope = phttp.Envelope
	Response = phttp.Response
	Handler  = phttp.Handler
	Router   = phttp.Router
)

func OK(data any) Response      { return phttp.OK(data) }
func Created(data any) Response { return phttp.Created(data) }
func Error(err error) Response  { return phttp.Error(err) }

// List wraps a listing fetched under limit with its page block
func List(items any, count, limit int) Response { return phttp.List(items, count, limit) }

// Call adapts a handler returning data or an error. Returning a Response
// controls the status
func Call(fn func(*http.Request) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) Response {
		out, err := fn(r)
		if err != nil {
			return phttp.Error(err)
		}
		if resp, ok := out.(Response); ok {
			return resp
		}
		return phttp.OK(out)
	})
}

func Get(r Router, path string, h func(*http.Request) (any, error))  { r.Get(path, Call(h)) }
func Post(r Router, path string, h func(*http.Request) (any, error)) { r.Post(path, Call(h)) }
