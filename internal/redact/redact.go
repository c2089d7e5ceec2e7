// Package redact scrubs credentials out of strings before they are logged.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|token|access[_-]?token)\b\s*[:=]\s*[^\s"'&]+`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}

// Token masks a credential down to its last four characters.
// Short tokens are masked entirely.
func Token(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

// URL drops userinfo and query values from a URL string.
// Unparseable input is returned through Secrets.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Secrets(raw)
	}
	if u.User != nil {
		u.User = url.User("redacted")
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}
