package middlewares

import "context"

// contextKey keeps this package's context values from colliding with others.
type contextKey string

const (
	HeaderXRequestID = "X-Request-Id"

	ContextKeyRequestID contextKey = "request_id"
	ContextKeyCartID    contextKey = "cart_id"
)

// RequestID returns the id attached by AttachRequestMetadata.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}

// CartID returns the cart scope attached by Session.
func CartID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyCartID).(string)
	return id
}
