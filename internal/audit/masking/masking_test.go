package masking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                                  "",
		"abc":                               "****",
		"cvd_live_0123456789abcdef":         "cvd_live_****cdef",
		"  cvd_live_0123456789abcdef  ":     "cvd_live_****cdef",
		"sk_abcd":                           "sk_****",
		"plain-secret-without-underscore12": "****re12",
	}
	for in, want := range cases {
		if got := MaskSecret(in); got != want {
			t.Fatalf("MaskSecret(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestMaskSensitiveOnlyTouchesCredentialKeys(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"name":       "ci key",
		"secret_key": "cvd_live_0123456789abcdef",
		"nested": map[string]any{
			"password": "hunter22",
			"plan":     "pro",
		},
		"scopes": []string{"scan:read"},
	})

	require.Equal(t, "ci key", out["name"])
	require.Equal(t, "cvd_live_****cdef", out["secret_key"])
	nested := out["nested"].(map[string]any)
	require.Equal(t, "****er22", nested["password"])
	require.Equal(t, "pro", nested["plan"])
	require.Equal(t, []string{"scan:read"}, out["scopes"])
}

func TestMaskJSONEmpty(t *testing.T) {
	if got := MaskJSON(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := MaskJSON(map[string]any{" ": "x"}); got != nil {
		t.Fatalf("expected nil for blank keys, got %v", got)
	}
}
