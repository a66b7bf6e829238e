package targeturl

import (
	"net/url"
	"regexp"
	"strings"
)

const MaxURLLength = 2048

const (
	MsgRequired       = "URL is required"
	MsgTooLong        = "URL exceeds maximum length"
	MsgInvalidFormat  = "Invalid URL format"
	MsgSchemeNotAllow = "Only http/https URLs are allowed"
	MsgInternal       = "Internal URLs are not allowed"
	MsgUnresolvable   = "Unable to resolve hostname"
	MsgResolvesToIP   = "URL resolves to a private/reserved IP address"
)

// ValidationError is returned when a target is refused; Message is user facing.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var explicitScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// Validate checks a scan target and returns it normalized with an explicit scheme
// and a lower-cased host. Inputs without a scheme are treated as https.
func Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ValidationError{Message: MsgRequired}
	}
	if len(raw) > MaxURLLength {
		return nil, &ValidationError{Message: MsgTooLong}
	}

	candidate := raw
	if !strings.HasPrefix(candidate, "http") && !explicitScheme.MatchString(candidate) {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return nil, &ValidationError{Message: MsgInvalidFormat}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, &ValidationError{Message: MsgSchemeNotAllow}
	}
	if parsed.Hostname() == "" {
		return nil, &ValidationError{Message: MsgInvalidFormat}
	}

	if IsPrivateHostname(parsed.Hostname()) {
		return nil, &ValidationError{Message: MsgInternal}
	}

	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed, nil
}
