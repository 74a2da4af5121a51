package core

import (
	"context"

	"github.com/google/uuid"
)

type connIDKey struct{}

// WithConnID attaches a connection ID to the context.
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connIDKey{}, connID)
}

// ConnID returns the connection ID carried by ctx, or "".
func ConnID(ctx context.Context) string {
	if id, ok := ctx.Value(connIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GenerateConnID returns a fresh random connection ID.
func GenerateConnID() string {
	return uuid.New().String()
}
