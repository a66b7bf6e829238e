package server

import (
	"github.com/checkvibe/gatekeeper/internal/auth/scope"
	"github.com/checkvibe/gatekeeper/internal/authn"
	"github.com/checkvibe/gatekeeper/internal/csrf"
	obscontext "github.com/checkvibe/gatekeeper/internal/observability/context"
	"github.com/checkvibe/gatekeeper/internal/observability/logger"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contextAuthKey = "authn"

// CSRFProtect checks the Origin of state-changing requests.
func (s *Server) CSRFProtect() gin.HandlerFunc {
	return func(c *gin.Context) {
		if csrf.IsSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if err := s.csrf.Check(c.Request); err != nil {
			s.obsMetrics.RecordCSRFRejection(c.Request.Context(), c.FullPath())
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// Authenticated resolves the request credential and applies rate limits.
func (s *Server) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := s.sessions.ReadToken(c)
		ac, err := s.resolver.Resolve(c.Request.Context(), authn.Request{
			Authorization: c.GetHeader("Authorization"),
			SessionToken:  token,
			ClientIP:      c.ClientIP(),
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		for name, value := range ac.RateLimitHeaders {
			c.Header(name, value)
		}

		keyID := ""
		if ac.IsAPIKey() {
			keyID = ac.KeyID.String()
		}
		ctx := authn.WithContext(c.Request.Context(), ac)
		ctx = obscontext.WithPrincipal(ctx, ac.UserID.String(), keyID, string(ac.Method))
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextAuthKey, ac)
		c.Next()
	}
}

func (s *Server) RequireScope(required scope.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, _ := authContext(c)
		if err := authn.RequireScope(ac, required); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RecordUsage appends API key requests to the usage log once the final
// status is known. Session requests are not logged.
func (s *Server) RecordUsage() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ac, ok := authContext(c)
		if !ok || !ac.IsAPIKey() || s.usageRecorder == nil {
			return
		}

		status := c.Writer.Status()
		if !c.Writer.Written() {
			if last := c.Errors.Last(); last != nil {
				status, _ = mapError(last.Err)
			}
		}

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		accepted := s.usageRecorder.Record(usagedomain.Entry{
			KeyID:      ac.KeyID,
			UserID:     ac.UserID,
			Endpoint:   endpoint,
			Method:     c.Request.Method,
			IPAddress:  ac.ClientIP,
			StatusCode: status,
		})
		if !accepted {
			logger.FromContext(c.Request.Context()).Debug("usage entry not recorded",
				zap.String("endpoint", endpoint),
				zap.Int("status_code", status),
			)
		}
	}
}

func authContext(c *gin.Context) (*authn.Context, bool) {
	value, ok := c.Get(contextAuthKey)
	if !ok {
		return nil, false
	}
	ac, ok := value.(*authn.Context)
	return ac, ok && ac != nil
}

func mustAuthContext(c *gin.Context) (*authn.Context, bool) {
	ac, ok := authContext(c)
	if !ok {
		AbortWithError(c, authn.ErrUnauthenticated)
		return nil, false
	}
	return ac, true
}
