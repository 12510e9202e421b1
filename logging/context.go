package logging

import (
	"context"

	"github.com/google/uuid"
)

type requestKey struct{}

// RequestField is the field name context-aware log calls tag entries with.
const RequestField = "request"

// WithRequest tags ctx with a request id that the C-prefixed log methods attach to every entry.
// An empty id generates a short random one.
func WithRequest(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()[:8]
	}
	return context.WithValue(ctx, requestKey{}, id)
}

// RequestFrom returns the request id ctx was tagged with, or "".
func RequestFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestKey{}).(string)
	return id
}
