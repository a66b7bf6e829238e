// Package csrf rejects cross-site mutating requests made with session cookies.
package csrf

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/checkvibe/gatekeeper/internal/config"
)

var ErrRejected = errors.New("csrf_rejected")

const bearerKeyPrefix = "Bearer cvd_live_"

var localhostWithPort = regexp.MustCompile(`^localhost:\d+$`)

// Guard validates the Origin header of cookie-authenticated requests.
type Guard struct {
	// AllowLocalhost accepts localhost origins; only enabled in development.
	AllowLocalhost bool
}

func NewGuard(cfg config.Config) *Guard {
	return &Guard{AllowLocalhost: cfg.CSRFAllowLocalhost}
}

// Check returns nil when the request may proceed and ErrRejected otherwise.
// Requests authenticated with an API key carry no ambient credentials and are skipped.
func (g *Guard) Check(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Authorization"), bearerKeyPrefix) {
		return nil
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return ErrRejected
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return ErrRejected
	}

	if parsed.Host == r.Host {
		return nil
	}
	if g.AllowLocalhost && (parsed.Host == "localhost" || localhostWithPort.MatchString(parsed.Host)) {
		return nil
	}

	return ErrRejected
}

// IsSafeMethod reports methods that never mutate state and are exempt from the check.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
