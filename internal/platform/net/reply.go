package net

import (
	"encoding/json"
	"net/http"

	perr "chatlens/internal/platform/errors"
)

// Envelope wraps every JSON response of the API
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	// Field names the request field an error is about
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Page      *Page  `json:"page,omitempty"`
}

// Page describes one page of a listing: Count rows returned under a Limit.
// Count below Limit means there is nothing further
type Page struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// Reply builds a success envelope
func Reply(status int, data any, page *Page, reqID string) Envelope {
	return Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  reqID,
		Data:       data,
		Page:       page,
	}
}

// Error builds the envelope for err with its mapped status
func Error(err error, reqID string) (int, Envelope) {
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	return status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Code,
		Error:      w.Message,
		Field:      w.Field,
		RequestID:  reqID,
	}
}

// WriteJSON writes v as the response body
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
