// Package transforms provides response transforms for request configs.
package transforms

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/reqflow/pkg/request"
)

// Names accepted by ByName.
const (
	NameJSON = "json"
	NameHTML = "html"
	NameYAML = "yaml"
	NameText = "text"
)

// ByName resolves a transform. JSON returns nil so the engine's own
// content-type driven decoding applies.
func ByName(name string) (func(string) any, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameJSON:
		return nil, nil
	case NameHTML:
		return HTML, nil
	case NameYAML:
		return YAML, nil
	case NameText:
		return Text, nil
	default:
		return nil, fmt.Errorf("unknown response transform %q", name)
	}
}

// Text keeps the body as-is regardless of content type.
func Text(body string) any {
	return body
}

// Apply sets cfg.TransformResponse to the named transform.
func Apply(cfg *request.Config, name string) error {
	fn, err := ByName(name)
	if err != nil {
		return err
	}
	cfg.TransformResponse = fn
	return nil
}
