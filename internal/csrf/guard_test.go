package csrf

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestGuardCheck(t *testing.T) {
	cases := []struct {
		name           string
		host           string
		origin         string
		authorization  string
		allowLocalhost bool
		wantErr        bool
	}{
		{name: "api_key_bypass", host: "checkvibe.dev", authorization: "Bearer cvd_live_abc123"},
		{name: "other_bearer_not_bypassed", host: "checkvibe.dev", authorization: "Bearer something", wantErr: true},
		{name: "missing_origin", host: "checkvibe.dev", wantErr: true},
		{name: "same_origin", host: "checkvibe.dev", origin: "https://checkvibe.dev"},
		{name: "same_origin_port", host: "checkvibe.dev:8443", origin: "https://checkvibe.dev:8443"},
		{name: "cross_origin", host: "checkvibe.dev", origin: "https://evil.com", wantErr: true},
		{name: "suffix_attack", host: "checkvibe.dev", origin: "https://checkvibe.dev.evil.com", wantErr: true},
		{name: "malformed_origin", host: "checkvibe.dev", origin: "://bad", wantErr: true},
		{name: "null_origin", host: "checkvibe.dev", origin: "null", wantErr: true},
		{name: "localhost_dev", host: "checkvibe.dev", origin: "http://localhost:3000", allowLocalhost: true},
		{name: "localhost_bare_dev", host: "checkvibe.dev", origin: "http://localhost", allowLocalhost: true},
		{name: "localhost_prod", host: "checkvibe.dev", origin: "http://localhost:3000", wantErr: true},
		{name: "localhost_lookalike", host: "checkvibe.dev", origin: "http://localhost.evil.com", allowLocalhost: true, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/keys", nil)
			req.Host = tc.host
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.authorization != "" {
				req.Header.Set("Authorization", tc.authorization)
			}

			guard := &Guard{AllowLocalhost: tc.allowLocalhost}
			err := guard.Check(req)
			if tc.wantErr {
				if !errors.Is(err, ErrRejected) {
					t.Fatalf("expected ErrRejected, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected pass, got %v", err)
			}
		})
	}
}

func TestIsSafeMethod(t *testing.T) {
	for _, method := range []string{"GET", "HEAD", "OPTIONS"} {
		if !IsSafeMethod(method) {
			t.Fatalf("expected %s to be safe", method)
		}
	}
	for _, method := range []string{"POST", "PATCH", "PUT", "DELETE"} {
		if IsSafeMethod(method) {
			t.Fatalf("expected %s to be unsafe", method)
		}
	}
}
