package targeturl

import (
	"context"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// Lookuper resolves host names; *net.Resolver satisfies it.
type Lookuper interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Resolution is a validated target together with the addresses it resolved to.
type Resolution struct {
	URL   *url.URL
	Addrs []netip.Addr
}

// Resolver re-checks a target against the addresses its host name resolves to.
type Resolver struct {
	lookup Lookuper
}

func NewResolver(lookup Lookuper) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	return &Resolver{lookup: lookup}
}

// ResolveAndValidate runs Validate and then refuses hosts with any private answer.
func (r *Resolver) ResolveAndValidate(ctx context.Context, raw string) (*Resolution, error) {
	parsed, err := Validate(raw)
	if err != nil {
		return nil, err
	}

	host := strings.Trim(parsed.Hostname(), "[]")
	if addr, err := netip.ParseAddr(host); err == nil {
		if IsPrivateAddr(addr) {
			return nil, &ValidationError{Message: MsgResolvesToIP}
		}
		return &Resolution{URL: parsed, Addrs: []netip.Addr{addr}}, nil
	}

	addrs, err := r.lookup.LookupNetIP(ctx, "ip", host)
	if err != nil || len(addrs) == 0 {
		return nil, &ValidationError{Message: MsgUnresolvable}
	}
	for _, addr := range addrs {
		if IsPrivateAddr(addr) {
			return nil, &ValidationError{Message: MsgResolvesToIP}
		}
	}

	return &Resolution{URL: parsed, Addrs: addrs}, nil
}
