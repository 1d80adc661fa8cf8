package slogx

import (
	"log/slog"
	"strings"
)

// Redacted replaces the value of sensitive attributes.
const Redacted = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"password":      {},
	"token":         {},
	"otpsecret":     {},
	"otp_secret":    {},
	"captcha":       {},
	"code":          {},
}

// IsSensitive reports whether an attribute or field named key must never be logged.
func IsSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

// Redact is a slog.HandlerOptions.ReplaceAttr hook that masks sensitive attributes,
// including ones nested in groups.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindGroup && IsSensitive(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	return a
}
