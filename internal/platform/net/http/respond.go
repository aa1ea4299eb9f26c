// Package http adapts chi to the platform Router and writes every response
// through the shared envelope
package http

import (
	stdhttp "net/http"

	pnet "chatlens/internal/platform/net"
)

type (
	Envelope = pnet.Envelope
	Page     = pnet.Page
)

// Response is what return style handlers produce. Body is data, or an
// error to be mapped to its status
type Response struct {
	Status int
	Body   any
	Page   *Page
	Header stdhttp.Header
}

// Handle adapts a Response returning handler to net/http
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		h(r).write(w, r)
	}
}

func (resp Response) write(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	reqID := pnet.RequestID(r.Context())
	if err, ok := resp.Body.(error); ok && err != nil {
		status, env := pnet.Error(err, reqID)
		pnet.WriteJSON(w, status, env)
		return
	}
	status := resp.Status
	if status == 0 {
		status = stdhttp.StatusOK
	}
	if status == stdhttp.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	pnet.WriteJSON(w, status, pnet.Reply(status, resp.Body, resp.Page, reqID))
}

func OK(data any) Response      { return Response{Status: stdhttp.StatusOK, Body: data} }
func Created(data any) Response { return Response{Status: stdhttp.StatusCreated, Body: data} }

// Error maps err to its status and envelope
func Error(err error) Response { return Response{Body: err} }

// List returns count items fetched under limit. limit 0 means the caller
// applied no limit and pages by count
func List(items any, count, limit int) Response {
	if limit == 0 {
		limit = count
	}
	return Response{Status: stdhttp.StatusOK, Body: items, Page: &Page{Count: count, Limit: limit}}
}
