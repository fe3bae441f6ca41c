package graph

import "context"

type contextKey string

const (
	authHeaderKey contextKey = "authHeader"
	clientIPKey   contextKey = "clientIP"
)

// WithRequestMeta stores the request's Authorization header and client IP for
// the resolvers.
func WithRequestMeta(ctx context.Context, authHeader, clientIP string) context.Context {
	ctx = context.WithValue(ctx, authHeaderKey, authHeader)
	return context.WithValue(ctx, clientIPKey, clientIP)
}

func authHeaderFrom(ctx context.Context) string {
	v, _ := ctx.Value(authHeaderKey).(string)
	return v
}

func clientIPFrom(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
