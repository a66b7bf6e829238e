package scope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	for _, s := range All() {
		assert.True(t, IsValid(s), s)
	}
	assert.False(t, IsValid("scan:delete"))
	assert.False(t, IsValid("SCAN:READ"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("*"))
}

func TestValidate(t *testing.T) {
	got, err := Validate([]string{"scan:read", " keys:read ", "scan:read"})
	require.NoError(t, err)
	assert.Equal(t, []string{"scan:read", "keys:read"}, got)

	_, err = Validate([]string{"scan:read", "scan:delete"})
	assert.True(t, errors.Is(err, ErrInvalidScope))

	_, err = Validate(nil)
	assert.True(t, errors.Is(err, ErrEmptyScopes))

	_, err = Validate([]string{})
	assert.True(t, errors.Is(err, ErrEmptyScopes))

	_, err = Validate([]string{"  "})
	assert.True(t, errors.Is(err, ErrInvalidScope))

	got, err = Validate([]string{"scan:read", "", "   "})
	assert.True(t, errors.Is(err, ErrInvalidScope))
	assert.Nil(t, got)
}

func TestHas(t *testing.T) {
	scopes := []string{"scan:read", "keys:read"}
	assert.True(t, Has(scopes, ScopeScanRead))
	assert.False(t, Has(scopes, ScopeKeysManage))
	assert.False(t, Has(scopes, ""))
	assert.False(t, Has([]string{"keys:*"}, ScopeKeysManage))
	assert.True(t, Has(All(), ScopeKeysManage))
}
