package authn

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Method string

const (
	MethodSession Method = "session"
	MethodAPIKey  Method = "api_key"
)

// Context is the resolved identity of one request.
type Context struct {
	UserID snowflake.ID
	// KeyID is zero for session requests.
	KeyID  snowflake.ID
	Method Method
	Scopes []string
	Plan   string

	KeyAllowedDomains  []string
	KeyAllowedIPs      []string
	UserAllowedDomains []string

	ClientIP string
	// RateLimitHeaders describe the window that admitted the request.
	RateLimitHeaders map[string]string
}

func (c *Context) IsAPIKey() bool {
	return c != nil && c.Method == MethodAPIKey && c.KeyID != 0
}

type contextKey struct{}

func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	ac, ok := ctx.Value(contextKey{}).(*Context)
	return ac, ok && ac != nil
}
