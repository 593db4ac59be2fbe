package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config represents runtime configuration for the gateway. Policy limits are
// static process-wide configuration, not runtime-tunable.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Provider ProviderConfig `json:"provider"`
	Limits   LimitsConfig   `json:"limits"`
	Redis    RedisConfig    `json:"redis"`
	Workers  WorkerConfig   `json:"workers"`
}

type ServerConfig struct {
	Address string `json:"address"`
}

type ProviderConfig struct {
	// Name selects the completion backend: "groq" (OpenAI-compatible),
	// "claude", or "gemini".
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

type LimitsConfig struct {
	MaxHistoryTokens  int     `json:"max_history_tokens"`
	RequestsPerWindow int     `json:"requests_per_window"`
	WindowSeconds     int     `json:"window_seconds"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	Temperature       float32 `json:"temperature"`
	MaxOutputTokens   int     `json:"max_output_tokens"`
	MaxIdentities     int     `json:"max_identities"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type WorkerConfig struct {
	MinWorkers         int `json:"min_workers"`
	MaxWorkers         int `json:"max_workers"`
	QueueSize          int `json:"queue_size"`
	IdleTimeoutSeconds int `json:"idle_timeout_seconds"`
}

// Load reads configuration from the provided path. An empty path yields the
// defaults; a named but unreadable file is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// APIKey resolves the provider credential from the environment. The
// credential is required: callers treat an empty result as fatal at startup.
func (p ProviderConfig) APIKey() string {
	switch p.Name {
	case "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("GROQ_API_KEY")
	}
}

// Window returns the rate-limit window width.
func (l LimitsConfig) Window() time.Duration {
	return time.Duration(l.WindowSeconds) * time.Second
}

// Timeout returns the completion call deadline.
func (l LimitsConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// Enabled reports whether a redis-backed rate-limit window was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (w WorkerConfig) IdleTimeout() time.Duration {
	return time.Duration(w.IdleTimeoutSeconds) * time.Second
}

func defaults() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8000"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "groq"
	}
	if cfg.Provider.BaseURL == "" && cfg.Provider.Name == "groq" {
		cfg.Provider.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "mixtral-8x7b-32768"
	}
	if cfg.Limits.MaxHistoryTokens == 0 {
		cfg.Limits.MaxHistoryTokens = 3000
	}
	if cfg.Limits.RequestsPerWindow == 0 {
		cfg.Limits.RequestsPerWindow = 20
	}
	if cfg.Limits.WindowSeconds == 0 {
		cfg.Limits.WindowSeconds = 60
	}
	if cfg.Limits.TimeoutSeconds == 0 {
		cfg.Limits.TimeoutSeconds = 30
	}
	if cfg.Limits.Temperature == 0 {
		cfg.Limits.Temperature = 0.7
	}
	if cfg.Limits.MaxOutputTokens == 0 {
		cfg.Limits.MaxOutputTokens = 1024
	}
	if cfg.Limits.MaxIdentities == 0 {
		cfg.Limits.MaxIdentities = 10000
	}
	if cfg.Workers.MinWorkers == 0 {
		cfg.Workers.MinWorkers = 2
	}
	if cfg.Workers.MaxWorkers == 0 {
		cfg.Workers.MaxWorkers = 16
	}
	if cfg.Workers.QueueSize == 0 {
		cfg.Workers.QueueSize = 64
	}
	if cfg.Workers.IdleTimeoutSeconds == 0 {
		cfg.Workers.IdleTimeoutSeconds = 30
	}
}
