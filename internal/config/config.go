// Package config loads and validates the process configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

// Addr renders the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SourceConfig selects and configures the record data source.
type SourceConfig struct {
	Type string `yaml:"type" validate:"oneof=file api"`
	Path string `yaml:"path"` // file source
	URL  string `yaml:"url"`  // api source
}

// IndexConfig configures the vector index lifecycle.
type IndexConfig struct {
	DataDir             string `yaml:"data_dir"`
	LazyLoad            bool   `yaml:"lazy_load"`
	RefreshIntervalSecs int    `yaml:"refresh_interval_secs" validate:"gte=0"`
	TopK                int    `yaml:"top_k" validate:"gte=0"`
	WatchSource         bool   `yaml:"watch_source"`
}

// OllamaConfig configures the embedding and generation backends.
type OllamaConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	EmbedModel  string  `yaml:"embed_model"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

// GatewayConfig configures generation retry and caching.
type GatewayConfig struct {
	Attempts        int `yaml:"attempts" validate:"gte=0"`
	BackoffSecs     int `yaml:"backoff_secs" validate:"gte=0"`
	CallTimeoutSecs int `yaml:"call_timeout_secs" validate:"gte=0"`
	CacheSize       int `yaml:"cache_size" validate:"gte=0"`
}

// SessionConfig configures conversation retention.
type SessionConfig struct {
	MaxTurns        int `yaml:"max_turns" validate:"gte=0"`
	IdleTimeoutMins int `yaml:"idle_timeout_mins" validate:"gte=0"`
}

// Config is the root application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Source  SourceConfig  `yaml:"source" validate:"required"`
	Index   IndexConfig   `yaml:"index"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	Gateway GatewayConfig `yaml:"gateway"`
	Session SessionConfig `yaml:"session"`
}

// Load reads a config from path, expanding ${ENV} references. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Source.Type == "file" && c.Source.Path == "" {
		return errors.New("invalid config: source.path is required for the file source")
	}
	if c.Source.Type == "api" && c.Source.URL == "" {
		return errors.New("invalid config: source.url is required for the api source")
	}
	return nil
}

// RefreshInterval returns the auto-refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Index.RefreshIntervalSecs) * time.Second
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Source: SourceConfig{Type: "file", Path: "data.json"},
		Index: IndexConfig{
			DataDir:             "./data",
			LazyLoad:            true,
			RefreshIntervalSecs: 1800,
			TopK:                4,
			WatchSource:         true,
		},
		Ollama: OllamaConfig{
			BaseURL:     "http://127.0.0.1:11434",
			Model:       "llama3.2:1b",
			EmbedModel:  "nomic-embed-text",
			MaxTokens:   100,
			Temperature: 0.7,
		},
		Gateway: GatewayConfig{
			Attempts:        5,
			BackoffSecs:     1,
			CallTimeoutSecs: 180,
			CacheSize:       100,
		},
		Session: SessionConfig{
			MaxTurns:        10,
			IdleTimeoutMins: 60,
		},
	}
}

// applyDefaults fills zero values a partial config file left out.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = def.Source.Type
	}
	if cfg.Source.Type == "file" && cfg.Source.Path == "" {
		cfg.Source.Path = def.Source.Path
	}
	if cfg.Index.DataDir == "" {
		cfg.Index.DataDir = def.Index.DataDir
	}
	if cfg.Index.RefreshIntervalSecs == 0 {
		cfg.Index.RefreshIntervalSecs = def.Index.RefreshIntervalSecs
	}
	if cfg.Index.TopK == 0 {
		cfg.Index.TopK = def.Index.TopK
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = def.Ollama.BaseURL
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = def.Ollama.Model
	}
	if cfg.Ollama.EmbedModel == "" {
		cfg.Ollama.EmbedModel = def.Ollama.EmbedModel
	}
	if cfg.Ollama.MaxTokens == 0 {
		cfg.Ollama.MaxTokens = def.Ollama.MaxTokens
	}
	if cfg.Ollama.Temperature == 0 {
		cfg.Ollama.Temperature = def.Ollama.Temperature
	}
	if cfg.Gateway.Attempts == 0 {
		cfg.Gateway.Attempts = def.Gateway.Attempts
	}
	if cfg.Gateway.BackoffSecs == 0 {
		cfg.Gateway.BackoffSecs = def.Gateway.BackoffSecs
	}
	if cfg.Gateway.CallTimeoutSecs == 0 {
		cfg.Gateway.CallTimeoutSecs = def.Gateway.CallTimeoutSecs
	}
	if cfg.Gateway.CacheSize == 0 {
		cfg.Gateway.CacheSize = def.Gateway.CacheSize
	}
	if cfg.Session.MaxTurns == 0 {
		cfg.Session.MaxTurns = def.Session.MaxTurns
	}
	if cfg.Session.IdleTimeoutMins == 0 {
		cfg.Session.IdleTimeoutMins = def.Session.IdleTimeoutMins
	}
}
