package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKeyFormat(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^cvd_live_[0-9a-f]{32}$`), key)
	assert.True(t, IsAPIKeyFormat(key))
	assert.Len(t, DisplayPrefix(key), len(KeyPrefix)+8)
	assert.Equal(t, key[:17], DisplayPrefix(key))
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		key, err := GenerateAPIKey()
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key generated")
		seen[key] = struct{}{}
	}
}

func TestHashAPIKey(t *testing.T) {
	// sha256("cvd_live_test")
	h := HashAPIKey("cvd_live_test")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashAPIKey("cvd_live_test"))
	assert.NotEqual(t, h, HashAPIKey("cvd_live_tesT"))
}

func TestIsAPIKeyFormat(t *testing.T) {
	assert.False(t, IsAPIKeyFormat(""))
	assert.False(t, IsAPIKeyFormat("cvd_test_abc"))
	assert.False(t, IsAPIKeyFormat("CVD_LIVE_abc"))
	assert.True(t, IsAPIKeyFormat("cvd_live_"))
}
