package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey     contextKey = "user_id"
	keyPrefixKey  contextKey = "key_prefix"
	callerInfoKey contextKey = "caller_info"
)

// callerInfo is installed by Logger before authentication runs and filled in
// once the auth middleware resolves the API key, so the access log can carry
// an identity established further down the chain.
type callerInfo struct {
	userID    uuid.UUID
	keyPrefix string
}

func withCallerInfo(ctx context.Context) context.Context {
	return context.WithValue(ctx, callerInfoKey, &callerInfo{})
}

func callerFrom(ctx context.Context) *callerInfo {
	info, _ := ctx.Value(callerInfoKey).(*callerInfo)
	return info
}

func SetUserID(ctx context.Context, id uuid.UUID) context.Context {
	if info := callerFrom(ctx); info != nil {
		info.userID = id
	}
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(userIDKey).(uuid.UUID)
	return id, ok
}

// SetKeyPrefix records which API key served the request; the rate limiter
// buckets on it.
func SetKeyPrefix(ctx context.Context, prefix string) context.Context {
	if info := callerFrom(ctx); info != nil {
		info.keyPrefix = prefix
	}
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}
