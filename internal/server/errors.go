package server

import (
	"errors"
	"net/http"

	apikeydomain "github.com/checkvibe/gatekeeper/internal/apikey/domain"
	auditdomain "github.com/checkvibe/gatekeeper/internal/audit/domain"
	authdomain "github.com/checkvibe/gatekeeper/internal/auth/domain"
	"github.com/checkvibe/gatekeeper/internal/auth/scope"
	"github.com/checkvibe/gatekeeper/internal/authn"
	"github.com/checkvibe/gatekeeper/internal/csrf"
	"github.com/checkvibe/gatekeeper/internal/targeturl"
	usagedomain "github.com/checkvibe/gatekeeper/internal/usage/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
)

// apiError carries a status and message chosen by the handler itself.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &apiError{status: http.StatusBadRequest, code: "invalid_request", message: message}
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, body := mapError(lastErr.Err)
		var limited *authn.RateLimitedError
		if errors.As(lastErr.Err, &limited) {
			for name, value := range limited.Headers {
				c.Header(name, value)
			}
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, body)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "Internal error"}
	}

	var (
		apiErr     *apiError
		validation *targeturl.ValidationError
		scopeErr   *authn.ScopeError
		domainErr  *authn.DomainError
		limited    *authn.RateLimitedError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.status, errorResponse{Error: apiErr.message, Code: apiErr.code}
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorResponse{Error: validation.Message, Code: "invalid_target"}
	case errors.As(err, &scopeErr):
		return http.StatusForbidden, errorResponse{Error: scopeErr.Error(), Code: "insufficient_scope"}
	case errors.As(err, &domainErr):
		return http.StatusForbidden, errorResponse{Error: domainErr.Error(), Code: "domain_not_allowed"}
	case errors.As(err, &limited):
		return http.StatusTooManyRequests, errorResponse{Error: limited.Error(), Code: "rate_limited"}
	}

	if status, body, ok := mapAPIKeyError(err); ok {
		return status, body
	}

	switch {
	case errors.Is(err, authn.ErrInvalidAPIKey):
		return http.StatusUnauthorized, errorResponse{Error: "Invalid or expired API key"}
	case errors.Is(err, authn.ErrUnauthenticated),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorResponse{Error: "Unauthorized"}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "Invalid email or password"}
	case errors.Is(err, authn.ErrIPNotAllowed):
		return http.StatusForbidden, errorResponse{Error: "Request from unauthorized IP address", Code: "ip_not_allowed"}
	case errors.Is(err, csrf.ErrRejected):
		return http.StatusForbidden, errorResponse{Error: "Invalid request origin", Code: "csrf_rejected"}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{Error: "Invalid request body", Code: "invalid_request"}
	case errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return http.StatusBadRequest, errorResponse{Error: "start_at must not be after end_at", Code: "invalid_time_range"}
	case errors.Is(err, usagedomain.ErrInvalidKeyID),
		errors.Is(err, usagedomain.ErrKeyNotFound):
		return http.StatusNotFound, errorResponse{Error: "Key not found"}
	case errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Not found"}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: "Service unavailable"}
	case errors.Is(err, authdomain.ErrUserExists):
		return http.StatusConflict, errorResponse{Error: "User already exists"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal error"}
	}
}

func mapAPIKeyError(err error) (int, errorResponse, bool) {
	switch {
	case errors.Is(err, apikeydomain.ErrInvalidName):
		return http.StatusBadRequest, errorResponse{Error: "Name must be 1-64 characters", Code: "invalid_name"}, true
	case errors.Is(err, apikeydomain.ErrInvalidAllowedDomains):
		return http.StatusBadRequest, errorResponse{Error: "Invalid allowed_domains", Code: "invalid_allowed_domains"}, true
	case errors.Is(err, apikeydomain.ErrInvalidAllowedIPs):
		return http.StatusBadRequest, errorResponse{Error: "Invalid allowed_ips", Code: "invalid_allowed_ips"}, true
	case errors.Is(err, apikeydomain.ErrInvalidExpiry):
		return http.StatusBadRequest, errorResponse{Error: "expires_in_days must be an integer between 1 and 365", Code: "invalid_expiry"}, true
	case errors.Is(err, apikeydomain.ErrNoUpdates):
		return http.StatusBadRequest, errorResponse{Error: "No valid fields to update", Code: "no_updates"}, true
	case errors.Is(err, apikeydomain.ErrKeyLimitReached):
		return http.StatusBadRequest, errorResponse{Error: "Maximum 10 active keys allowed. Revoke an existing key first.", Code: "key_limit_reached"}, true
	case errors.Is(err, apikeydomain.ErrInvalidKeyID),
		errors.Is(err, apikeydomain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Key not found or revoked"}, true
	case isScopeValidationError(err):
		return http.StatusBadRequest, errorResponse{Error: "Invalid scopes", Code: "invalid_scopes"}, true
	default:
		return 0, errorResponse{}, false
	}
}

func isScopeValidationError(err error) bool {
	return errors.Is(err, scope.ErrInvalidScope) || errors.Is(err, scope.ErrEmptyScopes)
}

// classifyErrorForLog feeds the request logger's error_type and error_code fields.
func classifyErrorForLog(err error) (string, string) {
	status, body := mapError(err)
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited", body.Code
	case status == http.StatusUnauthorized:
		return "unauthenticated", body.Code
	case status == http.StatusForbidden:
		return "forbidden", body.Code
	case status >= http.StatusInternalServerError:
		return "internal_error", "internal_error"
	case status >= http.StatusBadRequest:
		return "client_error", body.Code
	default:
		return "", ""
	}
}
