// Package net carries request scoped ids and the response envelope shared by
// the http packages
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey uint8

const (
	keyChatID ctxKey = iota
	keyClientID
)

// WithRequest annotates ctx with the request id and, for chat scoped
// tokens, the chat id. Empty values are skipped
func WithRequest(ctx context.Context, reqID, chatID string) context.Context {
	if reqID != "" {
		// chi's key so chimw.GetReqID sees it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if chatID != "" {
		ctx = context.WithValue(ctx, keyChatID, chatID)
	}
	return ctx
}

// WithClient annotates ctx with the authenticated API client
func WithClient(ctx context.Context, clientID string) context.Context {
	if clientID != "" {
		ctx = context.WithValue(ctx, keyClientID, clientID)
	}
	return ctx
}

// RequestID returns the request id on ctx, or ""
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// ChatID returns the chat a scoped token is bound to, or ""
func ChatID(ctx context.Context) string {
	v, _ := ctx.Value(keyChatID).(string)
	return v
}

// ClientID returns the authenticated client, or ""
func ClientID(ctx context.Context) string {
	v, _ := ctx.Value(keyClientID).(string)
	return v
}
