package transforms

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML decodes the body as a YAML document, returning the decode error on
// failure.
func YAML(body string) any {
	var v any
	if err := yaml.Unmarshal([]byte(body), &v); err != nil {
		return fmt.Errorf("decode yaml body: %w", err)
	}
	return v
}
