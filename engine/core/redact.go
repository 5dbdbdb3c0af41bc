package core

import (
	"regexp"
	"strings"
)

const maxRedactedLen = 256

// Provider errors echo request details; these patterns cover the secrets
// that show up in them.
var (
	bearerRe   = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-\._~\+\/]+=*`)
	keyValueRe = regexp.MustCompile(
		`(?i)(api[_-]?key|x-api-key|x-goog-api-key|token|secret|password)\s*[:=]\s*["']?[^"'\s]+["']?`,
	)
	providerKeyRe = regexp.MustCompile(
		`\b(sk-[A-Za-z0-9_\-]{8,}|sk-ant-[A-Za-z0-9_\-]{8,}|gsk_[A-Za-z0-9]{8,}|xai-[A-Za-z0-9]{8,}|AIza[A-Za-z0-9_\-]{20,})\b`,
	)
	credentialURLRe = regexp.MustCompile(`(?i)((redis|rediss|https?)://)[^@\s/]+@`)
)

// RedactString scrubs credentials from s and truncates it.
func RedactString(s string) string {
	s = strings.TrimSpace(s)
	s = credentialURLRe.ReplaceAllString(s, "$1[REDACTED]@")
	s = bearerRe.ReplaceAllString(s, "$1[REDACTED]")
	s = keyValueRe.ReplaceAllString(s, "$1=[REDACTED]")
	s = providerKeyRe.ReplaceAllString(s, "[REDACTED]")
	if len(s) > maxRedactedLen {
		s = s[:maxRedactedLen] + "…"
	}
	return s
}

// RedactError returns the redacted message of err, or "" for nil.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}
