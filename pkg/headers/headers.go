package headers

import (
	"net/http"
	"strconv"
	"strings"
)

// ContentLength is the canonical key whose value is coerced to an integer.
const ContentLength = "Content-Length"

// Normalize converts raw response headers into canonical keys with trimmed values.
// Entries with an empty name or empty value are dropped; a whitespace-only value
// is kept as "". Repeated values are joined
// with ", ". Content-Length is coerced to int64 when it parses as an integer.
func Normalize(raw http.Header) map[string]any {
	out := make(map[string]any, len(raw))
	for name, values := range raw {
		key := Canonical(name)
		if key == "" {
			continue
		}
		joined := strings.Join(values, ", ")
		if joined == "" {
			continue
		}
		value := strings.TrimSpace(joined)

		if key == ContentLength {
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				out[key] = n
				continue
			}
		}
		out[key] = value
	}
	return out
}

// Canonical title-cases each hyphen separated segment of name
// ("x-request-id" becomes "X-Request-Id"). Surrounding whitespace is removed.
func Canonical(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}
