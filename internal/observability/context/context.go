// Package context carries request correlation identifiers for logs and spans.
package context

import "context"

type requestIDKey struct{}

type principalKey struct{}

type principal struct {
	userID     string
	keyID      string
	authMethod string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithPrincipal records who the request was authenticated as.
func WithPrincipal(ctx context.Context, userID, keyID, authMethod string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal{
		userID:     userID,
		keyID:      keyID,
		authMethod: authMethod,
	})
}

// PrincipalFromContext returns user id, key id and auth method, empty when unauthenticated.
func PrincipalFromContext(ctx context.Context) (string, string, string) {
	if ctx == nil {
		return "", "", ""
	}
	value, ok := ctx.Value(principalKey{}).(principal)
	if !ok {
		return "", "", ""
	}
	return value.userID, value.keyID, value.authMethod
}
