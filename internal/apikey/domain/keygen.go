package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// KeyPrefix marks live API keys so they can be recognised without a lookup.
	KeyPrefix = "cvd_live_"

	secretBytes        = 16
	displayPrefixChars = 8
)

// GenerateAPIKey returns a new plaintext key: KeyPrefix followed by 32 hex characters.
func GenerateAPIKey() (string, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return KeyPrefix + hex.EncodeToString(secret), nil
}

// HashAPIKey is the lookup hash persisted instead of the plaintext key.
func HashAPIKey(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// DisplayPrefix is the non-secret part shown in listings, e.g. "cvd_live_1a2b3c4d".
func DisplayPrefix(plain string) string {
	n := len(KeyPrefix) + displayPrefixChars
	if len(plain) < n {
		return plain
	}
	return plain[:n]
}

func IsAPIKeyFormat(value string) bool {
	return strings.HasPrefix(value, KeyPrefix)
}
