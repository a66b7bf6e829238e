package targeturl

import (
	"net/netip"
	"testing"
)

func TestIsPrivateHostname(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{host: "localhost", want: true},
		{host: "LOCALHOST", want: true},
		{host: "localhost.", want: true},
		{host: "127.0.0.1", want: true},
		{host: "127.255.255.255", want: true},
		{host: "10.0.0.1", want: true},
		{host: "172.16.0.1", want: true},
		{host: "172.31.255.255", want: true},
		{host: "172.15.0.1", want: false},
		{host: "172.32.0.1", want: false},
		{host: "192.168.0.1", want: true},
		{host: "169.254.169.254", want: true},
		{host: "0.0.0.0", want: true},
		{host: "::1", want: true},
		{host: "[::1]", want: true},
		{host: "fe80:1::1", want: true},
		{host: "[fe80:1::1", want: true},
		{host: "fc00:1::1", want: true},
		{host: "fd12:abcd::1", want: true},
		{host: "::ffff:127.0.0.1", want: true},
		{host: "2130706433", want: true},
		{host: "0x7f000001", want: true},
		{host: "127.1", want: true},
		{host: "0177.0.0.1", want: true},
		{host: "printer.local", want: true},
		{host: "db.internal", want: true},
		{host: "nas.lan", want: true},
		{host: "example.com", want: false},
		{host: "checkvibe.dev", want: false},
		{host: "8.8.8.8", want: false},
		{host: "2606:4700:4700::1111", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.host, func(t *testing.T) {
			if got := IsPrivateHostname(tc.host); got != tc.want {
				t.Fatalf("IsPrivateHostname(%q) = %v, want %v", tc.host, got, tc.want)
			}
		})
	}
}

func TestIsPrivateAddr(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{addr: "100.64.0.1", want: true},
		{addr: "100.128.0.1", want: false},
		{addr: "192.0.2.10", want: true},
		{addr: "198.18.0.1", want: true},
		{addr: "203.0.113.5", want: true},
		{addr: "::", want: true},
		{addr: "::ffff:10.0.0.1", want: true},
		{addr: "93.184.216.34", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			if got := IsPrivateAddr(netip.MustParseAddr(tc.addr)); got != tc.want {
				t.Fatalf("IsPrivateAddr(%s) = %v, want %v", tc.addr, got, tc.want)
			}
		})
	}
}
