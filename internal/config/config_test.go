package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunInterval != time.Minute {
		t.Fatalf("unexpected run interval %v", cfg.RunInterval)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("unexpected http timeout %v", cfg.HTTPTimeout)
	}
	if cfg.DefaultMethod != "GET" || cfg.JournalType != "bbolt" {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if cfg.JournalTTL != 24*time.Hour || cfg.JournalCleanupInterval != time.Hour {
		t.Fatalf("unexpected journal durations %v %v", cfg.JournalTTL, cfg.JournalCleanupInterval)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("RUN_INTERVAL", "5")
	t.Setenv("DEFAULT_METHOD", " post ")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RunInterval != 5*time.Second || cfg.DefaultMethod != "POST" || cfg.LogLevel != "debug" {
		t.Fatalf("env not applied: %#v", cfg)
	}
}

func TestLoadRejectsInvalidDurations(t *testing.T) {
	t.Setenv("RUN_INTERVAL", "0")
	if _, err := load(viper.New()); err == nil {
		t.Fatalf("expected error for zero run_interval")
	}
}

func TestLoadRejectsNonPositiveRate(t *testing.T) {
	v := viper.New()
	v.Set("dispatch_rate", 0)
	if _, err := load(v); err == nil {
		t.Fatalf("expected error for zero dispatch_rate")
	}
}

func TestRequestHeadersAddsUserAgent(t *testing.T) {
	cfg := &Config{UserAgent: "reqflow/test", DefaultHeaders: map[string]string{"Accept": "*/*"}}
	got := cfg.RequestHeaders()
	if got["User-Agent"] != "reqflow/test" || got["Accept"] != "*/*" {
		t.Fatalf("unexpected headers %#v", got)
	}

	cfg.DefaultHeaders["User-Agent"] = "explicit"
	if cfg.RequestHeaders()["User-Agent"] != "explicit" {
		t.Fatalf("explicit User-Agent should win")
	}
}
