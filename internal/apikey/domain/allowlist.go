package domain

import (
	"net/netip"
	"regexp"
	"strings"
)

var domainPattern = regexp.MustCompile(`(?i)^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*$`)

// NormalizeDomain lower-cases host and strips one trailing dot.
func NormalizeDomain(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

// NormalizeDomains validates a domain allowlist; nil input stays nil (unrestricted).
func NormalizeDomains(domains []string) ([]string, error) {
	if domains == nil {
		return nil, nil
	}
	out := make([]string, 0, len(domains))
	seen := make(map[string]struct{}, len(domains))
	for _, raw := range domains {
		domain := NormalizeDomain(raw)
		if domain == "" || !domainPattern.MatchString(domain) {
			return nil, ErrInvalidAllowedDomains
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		out = append(out, domain)
	}
	return out, nil
}

// NormalizeIPs validates an allowlist of addresses and CIDR ranges.
func NormalizeIPs(ips []string) ([]string, error) {
	if ips == nil {
		return nil, nil
	}
	out := make([]string, 0, len(ips))
	for _, raw := range ips {
		value := strings.TrimSpace(raw)
		if strings.Contains(value, "/") {
			prefix, err := netip.ParsePrefix(value)
			if err != nil {
				return nil, ErrInvalidAllowedIPs
			}
			out = append(out, prefix.Masked().String())
			continue
		}
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return nil, ErrInvalidAllowedIPs
		}
		out = append(out, addr.Unmap().String())
	}
	return out, nil
}

// IPAllowed reports whether ip matches an entry of allowlist; an empty allowlist allows all.
func IPAllowed(allowlist []string, ip string) bool {
	if len(allowlist) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, entry := range allowlist {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err == nil && prefix.Contains(addr) {
				return true
			}
			continue
		}
		allowed, err := netip.ParseAddr(entry)
		if err == nil && allowed.Unmap() == addr {
			return true
		}
	}
	return false
}

// DomainAllowed reports whether host is listed; an empty allowlist allows all.
func DomainAllowed(allowlist []string, host string) bool {
	if len(allowlist) == 0 {
		return true
	}
	normalized := NormalizeDomain(host)
	for _, entry := range allowlist {
		if NormalizeDomain(entry) == normalized {
			return true
		}
	}
	return false
}
