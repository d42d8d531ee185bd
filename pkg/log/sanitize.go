package log

import (
	"strings"
)

// SanitizeField checks if the key contains sensitive keywords and sanitizes the value
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	// Convert key to lowercase for case-insensitive matching
	lowerKey := strings.ToLower(key)

	// Connection strings embed credentials (user:password@tcp(host)/db)
	if strings.Contains(lowerKey, "dsn") {
		return sanitizeDSN(value)
	}

	// Check if key contains sensitive keywords
	sensitiveKeywords := []string{
		"password", "passwd", "pwd",
		"api_key", "apikey", "api-key",
		"admin_key", "adminkey", "admin-key",
		"token", "secret", "auth", "authorization",
		"credential", "private_key", "privatekey",
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return sanitizeToken(value)
		}
	}

	return value
}

// sanitizeToken masks token/password values showing only first 4 and last 4 characters
func sanitizeToken(value string) string {
	if len(value) <= 8 {
		// For short strings, mask everything except first and last char
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}

	// For longer strings, show first 4 and last 4
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// sanitizeDSN masks the password segment of a user:password@host style DSN.
// Values without a credential segment are returned unchanged.
func sanitizeDSN(value string) string {
	at := strings.Index(value, "@")
	if at < 0 {
		return value
	}
	colon := strings.Index(value[:at], ":")
	if colon < 0 {
		return value
	}
	return value[:colon+1] + "****" + value[at:]
}
