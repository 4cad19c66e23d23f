// Package security masks credentials before they reach logs, audit entries or
// resource output.
package security

import (
	"net/url"
	"regexp"
	"strings"
)

const redacted = "***REDACTED***"

// sensitivePatterns match credential material that can surface in error
// messages: signed request headers, bearer tokens, passwords and PEM keys.
var sensitivePatterns = []*regexp.Regexp{
	// OCI HTTP signature: keep keyId, drop the signature value.
	regexp.MustCompile(`(?i)(signature=")([A-Za-z0-9+/=]{16,})(")`),
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9_.\-]{16,})()`),
	regexp.MustCompile(`(?i)(basic\s+)([A-Za-z0-9+/=]{8,})()`),
	regexp.MustCompile(`(?i)((?:password|passwd|passphrase|pwd)\s*[=:]\s*["']?)([^"'\s&,]+)(["']?)`),
	regexp.MustCompile(`(?i)((?:api[_-]?key|secret|token)\s*[=:]\s*["']?)([A-Za-z0-9_\-]{16,})(["']?)`),
}

var pemBlock = regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`)

// MaskSensitiveData replaces credential values in s, keeping the key names.
func MaskSensitiveData(s string) string {
	s = pemBlock.ReplaceAllString(s, "-----PRIVATE KEY "+redacted+"-----")
	for _, p := range sensitivePatterns {
		s = p.ReplaceAllString(s, "${1}"+redacted+"${3}")
	}
	return s
}

// SanitizeError renders err with credentials masked. Nil yields "".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return MaskSensitiveData(err.Error())
}

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"opc-obo-token": true,
	"x-api-key":     true,
	"x-auth-token":  true,
	"cookie":        true,
	"set-cookie":    true,
}

// MaskSensitiveHeaders flattens headers for logging with credentials redacted.
func MaskSensitiveHeaders(headers map[string][]string) map[string]string {
	masked := make(map[string]string, len(headers))
	for key, values := range headers {
		switch {
		case sensitiveHeaders[strings.ToLower(key)]:
			masked[key] = redacted
		case len(values) == 0:
			masked[key] = ""
		default:
			masked[key] = strings.Join(values, ", ")
		}
	}
	return masked
}

// MaskURL redacts credential-like query parameters.
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return rawURL
	}
	q := u.Query()
	changed := false
	for key := range q {
		if IsSensitiveField(key) {
			q.Set(key, redacted)
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// IsSensitiveField reports whether a field or parameter name suggests a secret.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range []string{"password", "passwd", "passphrase", "secret", "token", "apikey", "api_key", "authorization", "credential", "private"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
