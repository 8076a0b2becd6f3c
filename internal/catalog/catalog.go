// Package catalog loads named request definitions from YAML/JSON files.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samvad-hq/reqflow/pkg/request"
	"github.com/samvad-hq/reqflow/pkg/transforms"
	"gopkg.in/yaml.v3"
)

// Definition is one request entry declared in a catalog file. An empty Method
// leaves the choice to the engine's defaults.
type Definition struct {
	ID       string         `json:"id" yaml:"id"`
	URL      string         `json:"url" yaml:"url"`
	Method   string         `json:"method" yaml:"method"`
	User     string         `json:"user" yaml:"user"`
	Password string         `json:"password" yaml:"password"`
	Headers  map[string]any `json:"headers" yaml:"headers"`
	Data     any            `json:"data" yaml:"data"`
	Promise  bool           `json:"promise" yaml:"promise"`
	Decode   string         `json:"decode" yaml:"decode"`
}

type file struct {
	Requests []Definition `json:"requests" yaml:"requests"`
}

// Catalog is an immutable, ordered set of definitions.
type Catalog struct {
	defs []Definition
	idx  map[string]Definition
}

// Load reads the catalog at path.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("requests file path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open requests file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read requests file: %w", err)
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse decodes catalog content; ext selects the decoder and may be empty to try both.
func Parse(data []byte, ext string) (*Catalog, error) {
	parsed, err := parseFile(data, ext)
	if err != nil {
		return nil, err
	}
	if len(parsed.Requests) == 0 {
		return nil, errors.New("requests file contains no requests entries")
	}

	c := &Catalog{
		defs: make([]Definition, len(parsed.Requests)),
		idx:  make(map[string]Definition, len(parsed.Requests)),
	}
	for i := range parsed.Requests {
		d := sanitizeDefinition(parsed.Requests[i])
		if err := validateDefinition(d); err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		if _, exists := c.idx[d.ID]; exists {
			return nil, fmt.Errorf("duplicate request id %q", d.ID)
		}
		c.defs[i] = d
		c.idx[d.ID] = d
	}
	return c, nil
}

func parseFile(data []byte, ext string) (file, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var f file
		if err := d.fn(data, &f); err == nil {
			return f, nil
		}
	}
	return file{}, errors.New("requests file format not recognized (expected YAML or JSON)")
}

func sanitizeDefinition(d Definition) Definition {
	d.ID = strings.TrimSpace(d.ID)
	d.URL = strings.TrimSpace(d.URL)
	d.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	d.Decode = strings.ToLower(strings.TrimSpace(d.Decode))
	if d.Decode == "" {
		d.Decode = transforms.NameJSON
	}
	return d
}

func validateDefinition(d Definition) error {
	if d.ID == "" {
		return errors.New("id is required")
	}
	if d.URL == "" {
		return fmt.Errorf("url is required for request %q", d.ID)
	}
	if _, err := transforms.ByName(d.Decode); err != nil {
		return fmt.Errorf("request %q: %w", d.ID, err)
	}
	if d.Password != "" && d.User == "" {
		return fmt.Errorf("password without user for request %q", d.ID)
	}
	return nil
}

// All returns the definitions in file order.
func (c *Catalog) All() []Definition {
	if c == nil {
		return nil
	}
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// ByID returns the definition with the given id.
func (c *Catalog) ByID(id string) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	d, ok := c.idx[strings.TrimSpace(id)]
	return d, ok
}

// Len reports the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// ToConfig converts the definition into an engine request config.
func (d Definition) ToConfig() (request.Config, error) {
	cfg := request.Config{
		ID:        d.ID,
		URL:       d.URL,
		Method:    d.Method,
		User:      d.User,
		Password:  d.Password,
		Data:      d.Data,
		IsPromise: d.Promise,
	}
	if len(d.Headers) > 0 {
		cfg.Headers = make(map[string]any, len(d.Headers))
		for k, v := range d.Headers {
			cfg.Headers[k] = v
		}
	}
	if err := transforms.Apply(&cfg, d.Decode); err != nil {
		return request.Config{}, err
	}
	return cfg, nil
}
