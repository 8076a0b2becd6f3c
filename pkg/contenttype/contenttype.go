package contenttype

import "strings"

// None is returned when no media type is available.
const None = ""

// JSON is the only media type the engine decodes automatically.
const JSON = "application/json"

// MediaType returns the bare, lower-cased media type of a Content-Type value,
// e.g. "application/json; charset=utf-8" yields "application/json".
func MediaType(value string) string {
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// Of reads the Content-Type entry from normalized headers. Non-string values yield None.
func Of(headers map[string]any) string {
	raw, ok := headers["Content-Type"].(string)
	if !ok {
		return None
	}
	return MediaType(raw)
}

// IsJSON reports whether value negotiates to application/json.
func IsJSON(value string) bool {
	return MediaType(value) == JSON
}
