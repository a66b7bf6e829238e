package authn

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no usable credential was presented.
	ErrUnauthenticated = errors.New("unauthorized")
	ErrInvalidAPIKey   = errors.New("invalid_api_key")
	ErrIPNotAllowed    = errors.New("ip_not_allowed")
)

type ScopeError struct {
	Scope string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("API key missing required scope: %s", e.Scope)
}

type DomainError struct {
	Domain string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("API key not authorized for domain: %s", e.Domain)
}

type RateLimitedError struct {
	Headers map[string]string
}

func (e *RateLimitedError) Error() string {
	return "Rate limit exceeded"
}
