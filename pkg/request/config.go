package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Config describes one request. It is merged over defaults before dispatch.
type Config struct {
	// ID correlates lifecycle events; a random one is assigned when empty.
	ID       string
	URL      string
	Method   string
	User     string
	Password string
	Agent    http.RoundTripper
	// Headers may carry non-string values; only strings reach the wire.
	Headers map[string]any
	Data    any

	// IsPromise selects future-style completion. Success and Error are then ignored.
	IsPromise bool
	Success   func(*Response)
	Error     func(*Response)

	// TransformRequest replaces body encoding; its result is sent verbatim.
	TransformRequest func(data any) string
	// TransformResponse replaces body decoding for non-empty bodies. Returning
	// an error value settles the request as a decode failure.
	TransformResponse func(body string) any
}

// header returns the string value of a caller header, matching the name exactly.
func (c *Config) header(name string) string {
	if c == nil || c.Headers == nil {
		return ""
	}
	v, _ := c.Headers[name].(string)
	return v
}

// DefaultsFunc fills unset fields of a configuration.
type DefaultsFunc func(Config) Config

// StandardDefaults sets the method to GET, ensures a headers map and assigns an ID.
func StandardDefaults(cfg Config) Config {
	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]any{}
	}
	if strings.TrimSpace(cfg.ID) == "" {
		cfg.ID = uuid.NewString()
	}
	return cfg
}

// HeaderDefaults returns a DefaultsFunc adding headers the caller did not set.
func HeaderDefaults(defaults map[string]string) DefaultsFunc {
	return func(cfg Config) Config {
		if len(defaults) == 0 {
			return cfg
		}
		merged := make(map[string]any, len(cfg.Headers)+len(defaults))
		for k, v := range defaults {
			merged[k] = v
		}
		for k, v := range cfg.Headers {
			merged[k] = v
		}
		cfg.Headers = merged
		return cfg
	}
}

// MethodDefault returns a DefaultsFunc setting method when the caller left it empty.
func MethodDefault(method string) DefaultsFunc {
	return func(cfg Config) Config {
		if strings.TrimSpace(cfg.Method) == "" {
			cfg.Method = method
		}
		return cfg
	}
}

// ChainDefaults applies fns in order.
func ChainDefaults(fns ...DefaultsFunc) DefaultsFunc {
	return func(cfg Config) Config {
		for _, fn := range fns {
			if fn != nil {
				cfg = fn(cfg)
			}
		}
		return cfg
	}
}

// defaultRequestHeaders are reported in Response.RequestHeaders on the normal paths.
var defaultRequestHeaders = map[string]any{
	"Transfer-Encoding": "chunked",
}

// DropNonStringHeaders keeps only string-valued headers. Other values are
// dropped, never coerced.
func DropNonStringHeaders(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// StringifyFallback renders data that is neither a string nor JSON-bound.
// nil becomes an empty body; byte slices are sent as-is; everything else goes
// through fmt's default formatting.
func StringifyFallback(data any) string {
	switch v := data.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// encodeBody produces the outgoing body for cfg.
func encodeBody(cfg *Config) (string, error) {
	if cfg.TransformRequest != nil {
		return cfg.TransformRequest(cfg.Data), nil
	}
	if s, ok := cfg.Data.(string); ok {
		return s, nil
	}
	if cfg.header("Content-Type") == "application/json" {
		raw, err := json.Marshal(cfg.Data)
		if err != nil {
			return "", fmt.Errorf("encode json body: %w", err)
		}
		return string(raw), nil
	}
	return StringifyFallback(cfg.Data), nil
}

func mergeHeaders(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}
