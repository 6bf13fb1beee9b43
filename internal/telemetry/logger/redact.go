package logger

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Attribute keys that carry secrets. Matched as substrings of the
// lower-cased key. Plain "key" is deliberately absent: record keys are
// logged as "key".
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"encryption_key",
	"api_key",
	"credential",
}

// payloadKeys name attributes holding client payloads.
var payloadKeys = map[string]bool{
	"value":   true,
	"payload": true,
}

// MaxPayloadPreview is the number of payload bytes kept in a log entry.
const MaxPayloadPreview = 32

const redactedValue = "***REDACTED***"

// redactSensitive masks secret attributes and truncates payloads.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	if IsSensitiveKey(a.Key) {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, redactedValue)
	}

	if payloadKeys[strings.ToLower(a.Key)] {
		switch v := a.Value.Any().(type) {
		case string:
			return slog.String(a.Key, PreviewPayload([]byte(v)))
		case []byte:
			return slog.String(a.Key, PreviewPayload(v))
		}
	}

	return a
}

// PreviewPayload renders at most MaxPayloadPreview bytes of b, quoting
// non-printable content, and notes how much was cut.
func PreviewPayload(b []byte) string {
	cut := 0
	if len(b) > MaxPayloadPreview {
		cut = len(b) - MaxPayloadPreview
		b = b[:MaxPayloadPreview]
	}

	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c < 0x7f {
			sb.WriteByte(c)
			continue
		}
		sb.WriteString(`\x`)
		sb.WriteByte("0123456789abcdef"[c>>4])
		sb.WriteByte("0123456789abcdef"[c&0xf])
	}
	if cut > 0 {
		sb.WriteString("...(+")
		sb.WriteString(strconv.Itoa(cut))
		sb.WriteString(" bytes)")
	}
	return sb.String()
}

// RedactString masks everything but a short hint of value.
func RedactString(value string) string {
	if utf8.RuneCountInString(value) <= 6 {
		return "***"
	}
	r := []rune(value)
	return string(r[:3]) + "..." + string(r[len(r)-3:])
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
