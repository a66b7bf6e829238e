// Package targeturl decides whether a user supplied scan target may be fetched.
package targeturl

import (
	"net/netip"
	"regexp"
	"strings"
)

var privateHostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^localhost$`),
	regexp.MustCompile(`^127\.\d+\.\d+\.\d+$`),
	regexp.MustCompile(`^10\.\d+\.\d+\.\d+$`),
	regexp.MustCompile(`^172\.(1[6-9]|2\d|3[01])\.\d+\.\d+$`),
	regexp.MustCompile(`^192\.168\.\d+\.\d+$`),
	regexp.MustCompile(`^169\.254\.\d+\.\d+$`),
	regexp.MustCompile(`^0\.\d+\.\d+\.\d+$`),
	regexp.MustCompile(`^\[?::1\]?$`),
	regexp.MustCompile(`(?i)^\[?fe80:`),
	regexp.MustCompile(`(?i)^\[?fc00:`),
	regexp.MustCompile(`(?i)^\[?fd[0-9a-f]{2}:`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`(?i)^0x`),
}

var internalSuffixes = []string{".local", ".internal", ".corp", ".home", ".lan"}

var numericLabel = regexp.MustCompile(`(?i)^(0x[0-9a-f]*|[0-9]+)$`)

// IsPrivateHostname reports whether host names a loopback, private, link-local or
// otherwise internal destination. It only looks at the string; no DNS is performed.
func IsPrivateHostname(host string) bool {
	lower := strings.ToLower(host)
	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	for _, pattern := range privateHostPatterns {
		if pattern.MatchString(host) {
			return true
		}
	}

	trimmed := strings.TrimSuffix(strings.Trim(lower, "[]"), ".")
	if trimmed == "localhost" {
		return true
	}
	if addr, err := netip.ParseAddr(trimmed); err == nil {
		return IsPrivateAddr(addr)
	}
	return isAmbiguousNumericHost(trimmed)
}

// isAmbiguousNumericHost catches shorthand and octal forms such as 127.1 or
// 0177.0.0.1 that resolvers expand to internal addresses.
func isAmbiguousNumericHost(host string) bool {
	labels := strings.Split(host, ".")
	if len(labels) < 2 || len(labels) > 4 {
		return false
	}
	for _, label := range labels {
		if !numericLabel.MatchString(label) {
			return false
		}
	}
	return true
}

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("fc00::/7"),
}

// IsPrivateAddr reports whether addr is loopback, private, link-local, CGNAT,
// documentation, benchmarking or unspecified, including IPv4-mapped IPv6 forms.
func IsPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() {
		return true
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() {
		return true
	}
	for _, prefix := range reservedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
