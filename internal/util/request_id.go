package util

import (
	"context"

	"github.com/google/uuid"
)

type key string

const requestIDKey = key("x-request-id")

// NewRequestID returns a uuid-v4 string to use as request id.
func NewRequestID() string {
	return uuid.NewString()
}

// WithRequestID returns a context carrying id.
// A new request id is generated when id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewRequestID()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request id from ctx, or "" when there is none.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
