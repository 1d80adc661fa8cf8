package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
)

// WithUserID records the authenticated user id so that per-user rate limits
// and audit logging can key on it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}

// UserIDFromContext returns the user id stored by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyUserID).(string)
	return v, ok && v != ""
}
