// Package redact removes credentials and other sensitive fragments from
// strings before they are logged. Upstream errors can echo request headers or
// connection strings; everything that reaches a log line from the gateways or
// the history store passes through here first.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules are applied in order; earlier rules win on overlapping text.
var rules = []rule{
	// Authorization: Bearer <token>
	{
		regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/=]{4,}`),
		"${1}" + RedactedKeyPlaceholder,
	},
	// user:password@ in connection strings and URLs
	{
		regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.\-]*://)[^/\s:@]+:[^/\s@]+@`),
		"${1}" + RedactedCredentialPlaceholder + "@",
	},
	// api_key=..., "token": "...", secret: ...
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|passwd)(["']?\s*[:=]\s*["']?)[^\s"'&,}]{4,}`),
		"${1}${2}" + RedactedKeyPlaceholder,
	},
	// JWT-shaped tokens
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		RedactionPlaceholder,
	},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
