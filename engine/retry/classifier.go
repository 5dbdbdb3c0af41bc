package retry

import (
	"context"
	"errors"
	"strings"
)

// Class is the retry classification of an upstream failure.
type Class int

const (
	// ClassUnknown matches neither list and is not retried.
	ClassUnknown Class = iota
	ClassTransient
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

var transientPatterns = []string{
	// network
	"econnrefused",
	"connection refused",
	"enotfound",
	"no such host",
	"dns",
	"econnreset",
	"connection reset",
	"socket hang up",
	"network error",
	"fetch failed",
	// timeouts
	"etimedout",
	"timeout",
	"timed out",
	"deadline exceeded",
	// rate limits
	"rate limit",
	"rate_limit",
	"too many requests",
	"429",
	// upstream
	"502",
	"503",
	"504",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
	// provider capacity
	"overloaded",
	"capacity",
}

var permanentPatterns = []string{
	// validation
	"invalid",
	"required",
	"must be",
	"400",
	// auth
	"401",
	"403",
	"unauthorized",
	"forbidden",
	// lookup
	"404",
	"not found",
	// agent engine
	"recursion limit",
}

// Classify inspects the error message and reports whether it looks
// transient, permanent or neither. Permanent patterns take precedence.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	msg := strings.ToLower(err.Error())
	if containsAny(msg, permanentPatterns) {
		return ClassPermanent
	}
	if containsAny(msg, transientPatterns) {
		return ClassTransient
	}
	return ClassUnknown
}

// IsTransient is the default IsRetryable classifier.
func IsTransient(err error) bool {
	return Classify(err) == ClassTransient
}

// IsPermanent reports errors that must never be retried.
func IsPermanent(err error) bool {
	return Classify(err) == ClassPermanent
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
