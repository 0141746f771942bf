package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Pattern to match API keys passed as key=value pairs
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{16,}`)

	// Pattern to match bearer tokens in error text echoed by providers
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)

	// Pattern to match OpenRouter/OpenAI style secret keys wherever they appear
	secretKeyPattern = regexp.MustCompile(`sk-[A-Za-z0-9-_]{8,}`)
)

// SanitizeError sanitizes error text that might contain credentials. Use
// this before logging any error coming back from a provider.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}

// Sanitize removes API keys and bearer tokens from a string.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	sanitized := apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = secretKeyPattern.ReplaceAllString(sanitized, RedactedText)
	return sanitized
}
