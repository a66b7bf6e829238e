package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomains(t *testing.T) {
	got, err := NormalizeDomains([]string{"Example.COM.", "api.example.com", "example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "api.example.com"}, got)

	_, err = NormalizeDomains([]string{"-bad.com"})
	assert.True(t, errors.Is(err, ErrInvalidAllowedDomains))

	_, err = NormalizeDomains([]string{"https://example.com"})
	assert.True(t, errors.Is(err, ErrInvalidAllowedDomains))

	got, err = NormalizeDomains(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNormalizeIPs(t *testing.T) {
	got, err := NormalizeIPs([]string{"203.0.113.7", "10.1.2.3/8", "2001:db8::1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.7", "10.0.0.0/8", "2001:db8::1"}, got)

	_, err = NormalizeIPs([]string{"300.1.1.1"})
	assert.True(t, errors.Is(err, ErrInvalidAllowedIPs))

	_, err = NormalizeIPs([]string{"10.0.0.0/33"})
	assert.True(t, errors.Is(err, ErrInvalidAllowedIPs))
}

func TestIPAllowed(t *testing.T) {
	allow := []string{"203.0.113.7", "10.0.0.0/8"}
	assert.True(t, IPAllowed(nil, "1.2.3.4"))
	assert.True(t, IPAllowed(allow, "203.0.113.7"))
	assert.True(t, IPAllowed(allow, "10.20.30.40"))
	assert.True(t, IPAllowed(allow, "::ffff:10.0.0.1"))
	assert.False(t, IPAllowed(allow, "192.0.2.1"))
	assert.False(t, IPAllowed(allow, "not-an-ip"))
}

func TestDomainAllowed(t *testing.T) {
	allow := []string{"example.com"}
	assert.True(t, DomainAllowed(nil, "anything.dev"))
	assert.True(t, DomainAllowed(allow, "EXAMPLE.com."))
	assert.False(t, DomainAllowed(allow, "sub.example.com"))
}
