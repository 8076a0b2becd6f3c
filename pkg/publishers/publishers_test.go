package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	})
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestLoadRegistryDefaultsPhases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.json")
	raw := `{"publishers":[{"id":"q","type":"sqs","sqs":{"uri":"https://sqs.local/q","region":"us-east-1"}},
{"id":"t","type":"sns","phases":[" Response ","error"],"sns":{"topic_arn":"arn:aws:sns:::t","region":"us-east-1"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	q, _ := reg.ByID("q")
	if !q.Wants("load") || !q.Wants("error") || q.Wants("before") {
		t.Fatalf("default phases wrong: %#v", q.Phases)
	}
	sns, _ := reg.ByID("t")
	if !sns.Wants("response") || sns.Wants("load") {
		t.Fatalf("configured phases wrong: %#v", sns.Phases)
	}
}

func TestValidatePublisherConfigRejectsUnknownPhase(t *testing.T) {
	cfg := sanitizePublisherConfig(PublisherConfig{
		ID:     "h1",
		Type:   TypeHTTP,
		Phases: []string{"finished"},
		HTTP:   &HTTPPublisherConfig{URL: "https://example.com"},
	})
	if err := validatePublisherConfig(cfg); err == nil {
		t.Fatalf("expected validation error for unknown phase")
	}
}

func TestValidatePublisherConfigRejectsUnknownType(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{ID: "k", Type: "kafka"})
	if err == nil {
		t.Fatalf("expected validation error for unsupported type")
	}
}

func TestValidatePublisherConfigPubSub(t *testing.T) {
	err := validatePublisherConfig(PublisherConfig{
		ID:     "ps",
		Type:   TypePubSub,
		PubSub: &GCPQueueConfig{ProjectID: "p"},
	})
	if err == nil {
		t.Fatalf("expected validation error for missing topic")
	}
}
