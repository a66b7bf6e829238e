package masking

import "strings"

const maskToken = "****"

var sensitiveKeyParts = []string{"secret", "token", "password", "api_key", "key_hash"}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}

	return prefix + maskToken + remainder[len(remainder)-4:]
}

// MaskJSON returns a copy of the input with every string value masked.
func MaskJSON(input map[string]any) map[string]any {
	return maskMap(input, func(string) bool { return true })
}

// MaskSensitive returns a copy of the input where only values under
// credential-like keys are masked.
func MaskSensitive(input map[string]any) map[string]any {
	return maskMap(input, IsSensitiveKey)
}

// IsSensitiveKey reports whether a metadata key names credential material.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func maskMap(input map[string]any, shouldMask func(string) bool) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if shouldMask(trimmedKey) {
			masked[trimmedKey] = maskValue(value)
			continue
		}
		switch cast := value.(type) {
		case map[string]any:
			masked[trimmedKey] = maskMap(cast, shouldMask)
		default:
			masked[trimmedKey] = value
		}
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskSecret(cast)
	case map[string]any:
		return MaskJSON(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item))
		}
		return out
	case []string:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, MaskSecret(item))
		}
		return out
	default:
		return value
	}
}

func splitPrefix(value string) (string, string) {
	lastUnderscore := strings.LastIndex(value, "_")
	if lastUnderscore == -1 || lastUnderscore == len(value)-1 {
		return "", value
	}
	return value[:lastUnderscore+1], value[lastUnderscore+1:]
}
