package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/checkvibe/gatekeeper/internal/apikey/domain"
	authdomain "github.com/checkvibe/gatekeeper/internal/auth/domain"
	"github.com/checkvibe/gatekeeper/internal/auth/scope"
	"github.com/checkvibe/gatekeeper/internal/config"
	"github.com/checkvibe/gatekeeper/internal/observability/metrics"
	"github.com/checkvibe/gatekeeper/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// Request carries the credentials of one inbound call.
type Request struct {
	Authorization string
	SessionToken  string
	ClientIP      string
}

type KeyVerifier interface {
	Verify(ctx context.Context, plain string) (*apikeydomain.APIKey, error)
}

type UserStore interface {
	Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error)
	GetUser(ctx context.Context, id snowflake.ID) (*authdomain.User, error)
}

type RateLimiter interface {
	CheckAll(ctx context.Context, check ratelimit.Check) (*ratelimit.Decision, error)
}

type Params struct {
	fx.In

	Keys    apikeydomain.Service
	Users   authdomain.Service
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

type Resolver struct {
	keys    KeyVerifier
	users   UserStore
	limiter RateLimiter
	metrics *metrics.Metrics
	log     *zap.Logger
}

func Provide(p Params) *Resolver {
	return NewResolver(p.Keys, p.Users, p.Limiter, p.Metrics, p.Log)
}

func NewResolver(keys KeyVerifier, users UserStore, limiter RateLimiter, m *metrics.Metrics, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		keys:    keys,
		users:   users,
		limiter: limiter,
		metrics: m,
		log:     log.Named("authn.resolver"),
	}
}

// Resolve authenticates req with an API key bearer token, falling back to
// the session cookie, then applies the IP allowlist and rate limits.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Context, error) {
	if token, ok := bearerAPIKey(req.Authorization); ok {
		ac, err := r.resolveAPIKey(ctx, token, req.ClientIP)
		r.record(ctx, MethodAPIKey, err)
		return ac, err
	}
	if strings.TrimSpace(req.SessionToken) != "" {
		ac, err := r.resolveSession(ctx, req.SessionToken, req.ClientIP)
		r.record(ctx, MethodSession, err)
		return ac, err
	}
	r.metrics.RecordAuthAttempt(ctx, "none", "rejected")
	return nil, ErrUnauthenticated
}

func (r *Resolver) resolveAPIKey(ctx context.Context, token, clientIP string) (*Context, error) {
	key, err := r.keys.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, apikeydomain.ErrInvalidKey) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("verify api key: %w", err)
	}

	if !apikeydomain.IPAllowed(key.AllowedIPs, clientIP) {
		r.log.Warn("api key used from unlisted address",
			zap.String("key_id", key.ID.String()),
			zap.String("client_ip", clientIP),
		)
		return nil, ErrIPNotAllowed
	}

	user, err := r.users.GetUser(ctx, key.UserID)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("load key owner: %w", err)
	}

	ac := &Context{
		UserID:             user.ID,
		KeyID:              key.ID,
		Method:             MethodAPIKey,
		Scopes:             append([]string(nil), key.Scopes...),
		Plan:               planOf(user),
		KeyAllowedDomains:  key.AllowedDomains,
		KeyAllowedIPs:      key.AllowedIPs,
		UserAllowedDomains: user.AllowedDomains,
		ClientIP:           clientIP,
	}
	if err := r.applyRateLimit(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

func (r *Resolver) resolveSession(ctx context.Context, token, clientIP string) (*Context, error) {
	session, err := r.users.Authenticate(ctx, token)
	if err != nil {
		if isSessionRejection(err) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("authenticate session: %w", err)
	}

	user, err := r.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}

	ac := &Context{
		UserID:             user.ID,
		Method:             MethodSession,
		Scopes:             scope.All(),
		Plan:               planOf(user),
		UserAllowedDomains: user.AllowedDomains,
		ClientIP:           clientIP,
	}
	if err := r.applyRateLimit(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

func (r *Resolver) applyRateLimit(ctx context.Context, ac *Context) error {
	check := ratelimit.Check{
		UserID: ac.UserID.String(),
		IP:     ac.ClientIP,
		Plan:   ac.Plan,
	}
	if ac.KeyID != 0 {
		check.KeyID = ac.KeyID.String()
	}

	decision, err := r.limiter.CheckAll(ctx, check)
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !decision.Allowed {
		return &RateLimitedError{Headers: decision.Headers}
	}
	ac.RateLimitHeaders = decision.Headers
	return nil
}

func (r *Resolver) record(ctx context.Context, method Method, err error) {
	outcome := "accepted"
	var limited *RateLimitedError
	switch {
	case err == nil:
	case errors.As(err, &limited):
		outcome = "rate_limited"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidAPIKey), errors.Is(err, ErrIPNotAllowed):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	r.metrics.RecordAuthAttempt(ctx, string(method), outcome)
}

// RequireScope passes when the context holds required. Sessions resolve with
// every scope, so only API keys are narrowed in practice.
func RequireScope(ac *Context, required scope.Scope) error {
	if ac == nil {
		return ErrUnauthenticated
	}
	if !scope.Has(ac.Scopes, required) {
		return &ScopeError{Scope: string(required)}
	}
	return nil
}

// RequireDomain enforces the key's domain allowlist against a target host.
func RequireDomain(ac *Context, host string) error {
	if ac == nil {
		return ErrUnauthenticated
	}
	if !ac.IsAPIKey() || len(ac.KeyAllowedDomains) == 0 {
		return nil
	}
	if !apikeydomain.DomainAllowed(ac.KeyAllowedDomains, host) {
		return &DomainError{Domain: host}
	}
	return nil
}

func bearerAPIKey(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if !apikeydomain.IsAPIKeyFormat(token) {
		return "", false
	}
	return token, true
}

func isSessionRejection(err error) bool {
	return errors.Is(err, authdomain.ErrInvalidSession) ||
		errors.Is(err, authdomain.ErrSessionExpired) ||
		errors.Is(err, authdomain.ErrSessionRevoked) ||
		errors.Is(err, authdomain.ErrSessionNotFound)
}

func planOf(user *authdomain.User) string {
	plan := strings.ToLower(strings.TrimSpace(user.Plan))
	if plan == "" {
		return config.DefaultPlan
	}
	return plan
}
