package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string        `mapstructure:"app_name"`
	Env            string        `mapstructure:"app_env"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestsFile   string        `mapstructure:"requests_file"`
	PublishersFile string        `mapstructure:"publishers_file"`
	RunIntervalSec int64         `mapstructure:"run_interval"`
	RunInterval    time.Duration `mapstructure:"-"`
	DispatchRate   float64       `mapstructure:"dispatch_rate"`
	DispatchBurst  int           `mapstructure:"dispatch_burst"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`

	HTTPTimeoutSeconds int64             `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration     `mapstructure:"-"`
	DefaultMethod      string            `mapstructure:"default_method"`
	UserAgent          string            `mapstructure:"user_agent"`
	DefaultHeaders     map[string]string `mapstructure:"default_headers"`

	JournalType            string        `mapstructure:"journal_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	JournalTTLSeconds      int64         `mapstructure:"journal_ttl_seconds"`
	JournalCleanupSeconds  int64         `mapstructure:"journal_cleanup_interval_seconds"`
	JournalTTL             time.Duration `mapstructure:"-"`
	JournalCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "reqflow")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("requests_file", "./configs/requests.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("run_interval", 60) // seconds
	v.SetDefault("dispatch_rate", 5.0)
	v.SetDefault("dispatch_burst", 1)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("default_method", "GET")
	v.SetDefault("user_agent", "reqflow/1.0")
	v.SetDefault("default_headers", map[string]string{})
	v.SetDefault("journal_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/journal.db")
	v.SetDefault("journal_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("journal_cleanup_interval_seconds", int64(time.Hour/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RunIntervalSec <= 0 {
		return nil, fmt.Errorf("invalid run_interval (must be positive seconds)")
	}
	cfg.RunInterval = time.Duration(cfg.RunIntervalSec) * time.Second

	if cfg.DispatchRate <= 0 {
		return nil, fmt.Errorf("invalid dispatch_rate (must be positive requests per second)")
	}
	if cfg.DispatchBurst <= 0 {
		cfg.DispatchBurst = 1
	}

	if cfg.HTTPTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must not be negative)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	cfg.DefaultMethod = strings.ToUpper(strings.TrimSpace(cfg.DefaultMethod))

	if cfg.JournalTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid journal_ttl_seconds (must be positive seconds)")
	}
	if cfg.JournalCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid journal_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.JournalTTL = time.Duration(cfg.JournalTTLSeconds) * time.Second
	cfg.JournalCleanupInterval = time.Duration(cfg.JournalCleanupSeconds) * time.Second

	return &cfg, nil
}

// RequestHeaders returns the process-wide default headers, including User-Agent when set.
func (c *Config) RequestHeaders() map[string]string {
	out := make(map[string]string, len(c.DefaultHeaders)+1)
	for k, v := range c.DefaultHeaders {
		out[k] = v
	}
	if c.UserAgent != "" {
		if _, ok := out["User-Agent"]; !ok {
			out["User-Agent"] = c.UserAgent
		}
	}
	return out
}
