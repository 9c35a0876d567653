package services

import "context"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func logPrefix(ctx context.Context) string {
	if id := RequestIDFrom(ctx); id != "" {
		return "[" + id + "] "
	}
	return ""
}
