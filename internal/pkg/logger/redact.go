package logger

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Keys whose values are redacted wholesale rather than pattern-matched.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"api_key":       true,
	"credential":    true,
	"secret":        true,
	"authorization": true,
}

// redactValue masks email addresses and secret-bearing fields. Emails keep
// their first character and domain so log lines stay correlatable.
func redactValue(key, val string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return "[REDACTED]"
	}
	return emailRegex.ReplaceAllStringFunc(val, func(email string) string {
		at := strings.Index(email, "@")
		if at < 1 {
			return "[REDACTED]"
		}
		return email[:1] + "***" + email[at:]
	})
}
