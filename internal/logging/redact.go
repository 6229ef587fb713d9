package logging

import (
	"net/url"
	"strings"
)

// Query parameter names whose values are never logged.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"auth",
	"signature",
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "REDACTED"

// RedactURL hides the userinfo password and sensitive query values of raw.
// Strings that do not parse as URLs are returned as a placeholder.
func RedactURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return RedactedValue
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if IsSensitiveField(key) {
				q.Set(key, RedactedValue)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
