package auth

import "context"

type ctxKey int

const userKey ctxKey = 1

// WithUser marks ctx as acting for userID. An empty id leaves ctx anonymous.
func WithUser(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey, userID)
}

// UserFromContext returns the acting user. Anonymous callers get ok=false,
// which makes ingestion ephemeral.
func UserFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(userKey).(string)
	return id, ok && id != ""
}
