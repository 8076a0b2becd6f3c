package transforms

import (
	"errors"
	"strings"
	"testing"

	"github.com/samvad-hq/reqflow/pkg/request"
)

func TestHTMLExtractsMeta(t *testing.T) {
	html := `<html><head>
<title> Fallback Title </title>
<meta property="og:title" content="OG Title">
<meta name="description" content="A page">
<meta property="og:image" content="https://img/x.png">
</head><body><a href="/a">a</a><a href="/b">b</a><a>none</a></body></html>`

	got, ok := HTML(html).(PageMeta)
	if !ok {
		t.Fatalf("expected PageMeta, got %T", HTML(html))
	}
	if got.Title != "OG Title" {
		t.Fatalf("Title = %q", got.Title)
	}
	if got.Description != "A page" {
		t.Fatalf("Description = %q", got.Description)
	}
	if got.ImageURL != "https://img/x.png" {
		t.Fatalf("ImageURL = %q", got.ImageURL)
	}
	if got.Links != 2 {
		t.Fatalf("Links = %d", got.Links)
	}
}

func TestHTMLFallsBackToTitleTag(t *testing.T) {
	got := HTML(`<title>  Plain </title>`).(PageMeta)
	if got.Title != "Plain" {
		t.Fatalf("Title = %q", got.Title)
	}
}

func TestHTMLRejectsOversizedBody(t *testing.T) {
	body := "<title>big</title>" + strings.Repeat("x", maxHTMLBodyBytes)
	err, ok := HTML(body).(error)
	if !ok || !errors.Is(err, ErrHTMLTooLarge) {
		t.Fatalf("expected ErrHTMLTooLarge, got %#v", HTML(body))
	}
	if _, ok := HTML(strings.Repeat("x", maxHTMLBodyBytes)).(PageMeta); !ok {
		t.Fatalf("body at the limit must still parse")
	}
}

func TestYAML(t *testing.T) {
	got, ok := YAML("name: reqflow\nport: 80\n").(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", YAML("name: reqflow"))
	}
	if got["name"] != "reqflow" || got["port"] != 80 {
		t.Fatalf("unexpected document %#v", got)
	}
}

func TestYAMLReturnsError(t *testing.T) {
	if _, ok := YAML("a: [1, 2").(error); !ok {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		wantNil bool
		wantErr bool
	}{
		{name: "", wantNil: true},
		{name: "JSON", wantNil: true},
		{name: "html"},
		{name: " yaml "},
		{name: "text"},
		{name: "xml", wantNil: true, wantErr: true},
	}
	for _, tt := range tests {
		fn, err := ByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: err = %v", tt.name, err)
		}
		if (fn == nil) != tt.wantNil {
			t.Fatalf("%q: nil transform = %v", tt.name, fn == nil)
		}
	}
}

func TestApply(t *testing.T) {
	var cfg request.Config
	if err := Apply(&cfg, "text"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cfg.TransformResponse == nil || cfg.TransformResponse("x") != "x" {
		t.Fatalf("text transform not applied")
	}
}
