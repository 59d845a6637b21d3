package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in
// logs (bearer tokens, signing keys — never AccountId/AssetId values, which
// are public identifiers safe to log in the clear).
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":          {},
	"env":              {},
	"message":          {},
	"severity":         {},
	"timestamp":        {},
	"error":            {},
	"route":            {},
	"method":           {},
	"status":           {},
	"asset":            {},
	"account":          {},
	"managementFeePct": {},
}

// IsAllowlisted reports whether key may be logged without redaction.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// RedactionAllowlist returns a sorted copy of the log keys exempt from
// automatic redaction. Tests use this to ensure sensitive keys stay masked.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue returns the canonical redacted placeholder for non-empty values.
// Empty values pass through unchanged to avoid noise in logs.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns a slog.Attr that redacts value unless key is
// explicitly allowlisted, used by the HTTP request logger to keep bearer
// tokens and JWT signing material out of logs.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
