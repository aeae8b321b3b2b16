package common

import (
	"context"
	"net/http"
)

type userKey struct{}

// WithUserID records the token subject that owns every record the request
// touches.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// RequestUser returns the request's user id or "". Services reject the
// empty id as unauthorised.
func RequestUser(r *http.Request) string {
	id, _ := UserID(r.Context())
	return id
}
