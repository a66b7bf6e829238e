package scope

import (
	"errors"
	"strings"
)

type Scope string

var (
	ErrInvalidScope = errors.New("invalid_scope")
	ErrEmptyScopes  = errors.New("empty_scopes")
)

const (
	ScopeScanRead   Scope = "scan:read"
	ScopeScanWrite  Scope = "scan:write"
	ScopeKeysRead   Scope = "keys:read"
	ScopeKeysManage Scope = "keys:manage"
)

// Default is granted to keys created without an explicit scope list.
var Default = []string{string(ScopeScanRead)}

var allScopes = []Scope{
	ScopeScanRead,
	ScopeScanWrite,
	ScopeKeysRead,
	ScopeKeysManage,
}

var validScopes = func() map[string]struct{} {
	lookup := make(map[string]struct{}, len(allScopes))
	for _, scope := range allScopes {
		lookup[string(scope)] = struct{}{}
	}
	return lookup
}()

// All returns every known scope; session-authenticated requests carry all of them.
func All() []string {
	values := make([]string, len(allScopes))
	for i, scope := range allScopes {
		values[i] = string(scope)
	}
	return values
}

// Has reports exact membership of required in scopes.
func Has(scopes []string, required Scope) bool {
	if required == "" {
		return false
	}
	for _, scope := range scopes {
		if scope == string(required) {
			return true
		}
	}
	return false
}

// Validate normalizes scopes and fails closed: an empty list or any unknown
// or blank entry rejects the whole set.
func Validate(scopes []string) ([]string, error) {
	if len(scopes) == 0 {
		return nil, ErrEmptyScopes
	}
	for _, scope := range scopes {
		if strings.TrimSpace(scope) == "" {
			return nil, ErrInvalidScope
		}
	}
	normalized := Normalize(scopes)
	if len(normalized) == 0 {
		return nil, ErrEmptyScopes
	}
	for _, scope := range normalized {
		if !IsValid(scope) {
			return nil, ErrInvalidScope
		}
	}
	return normalized, nil
}

// Normalize trims and de-duplicates while keeping the caller's order.
func Normalize(scopes []string) []string {
	if len(scopes) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(scopes))
	normalized := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		value := strings.TrimSpace(scope)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized
}

func IsValid(scope string) bool {
	_, ok := validScopes[scope]
	return ok
}
