// Package kit holds the transport-neutral plumbing shared by the HTTP and MCP
// surfaces: request-scoped context values, endpoint middleware and the MCP
// tool adapter.
package kit

import "context"

type contextKey string

const (
	RequestIDKey contextKey = "kit_request_id"
	TransportKey contextKey = "kit_transport" // "http", "mcp"
	UserKey      contextKey = "kit_user"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

// WithUser records the authenticated Basic-auth user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
func GetUser(ctx context.Context) string {
	v, _ := ctx.Value(UserKey).(string)
	return v
}

// LogAttrs returns the request-scoped values as slog key/value pairs,
// skipping empty ones.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, "request_id", v)
	}
	attrs = append(attrs, "transport", GetTransport(ctx))
	if v := GetUser(ctx); v != "" {
		attrs = append(attrs, "user", v)
	}
	return attrs
}
