package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"enclave-sdk/internal/clients"
	"enclave-sdk/internal/message"
	"enclave-sdk/internal/realtime"
)

// Config is the SDK configuration file layout.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Signer   SignerConfig   `yaml:"signer"`
	Language string         `yaml:"language"` // language code, e.g. "en", "zh", "ja"
	NATS     NATSConfig     `yaml:"nats"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// APIConfig backend REST API
type APIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Timeout           int     `yaml:"timeout"` // seconds
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	ReadAttempts      int     `yaml:"read_attempts"`
}

// RealtimeConfig push connection. An empty URL derives it from the API base URL.
type RealtimeConfig struct {
	URL                  string  `yaml:"url"`
	PingInterval         int     `yaml:"ping_interval"` // seconds
	PongTimeout          int     `yaml:"pong_timeout"`  // seconds
	ReconnectInitialMs   int     `yaml:"reconnect_initial_ms"`
	ReconnectMaxMs       int     `yaml:"reconnect_max_ms"`
	ReconnectMultiplier  float64 `yaml:"reconnect_multiplier"`
	MaxReconnectAttempts int     `yaml:"max_reconnect_attempts"`
}

// SignerConfig in-process key signer. Leave PrivateKey empty when the
// host application supplies its own signer.
type SignerConfig struct {
	ChainID    uint32 `yaml:"chain_id"` // SLIP-44
	PrivateKey string `yaml:"private_key"`
}

// NATSConfig event relay. Disabled when URL is empty.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Timeout       int    `yaml:"timeout"` // seconds
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// MetricsConfig is used by the command line tools only; the SDK itself
// registers on whatever registry the caller passes.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns a configuration with every value set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:3001",
			Timeout:           30,
			RequestsPerSecond: 10,
			Burst:             5,
			ReadAttempts:      3,
		},
		Realtime: RealtimeConfig{
			PingInterval:         int(realtime.DefaultPingInterval / time.Second),
			PongTimeout:          int(realtime.DefaultPongTimeout / time.Second),
			ReconnectInitialMs:   int(realtime.DefaultInitialDelay / time.Millisecond),
			ReconnectMaxMs:       int(realtime.DefaultMaxDelay / time.Millisecond),
			ReconnectMultiplier:  realtime.DefaultMultiplier,
			MaxReconnectAttempts: realtime.DefaultMaxAttempts,
		},
		Signer:   SignerConfig{ChainID: 714},
		Language: "en",
		NATS:     NATSConfig{SubjectPrefix: "enclave.sdk", Timeout: 10},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configPath over Default() and applies ENCLAVE_* environment
// overrides. An empty path means config.yaml, or config.local.yaml when it
// exists. A missing default file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if !explicit {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case explicit || !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideFromEnv applies ENCLAVE_* variables.
func overrideFromEnv(cfg *Config) error {
	if v := os.Getenv("ENCLAVE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("ENCLAVE_WS_URL"); v != "" {
		cfg.Realtime.URL = v
	}
	if v := os.Getenv("ENCLAVE_PRIVATE_KEY"); v != "" {
		cfg.Signer.PrivateKey = v
	}
	if v := os.Getenv("ENCLAVE_CHAIN_ID"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid ENCLAVE_CHAIN_ID %q: %w", v, err)
		}
		cfg.Signer.ChainID = uint32(id)
	}
	if v := os.Getenv("ENCLAVE_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("ENCLAVE_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("ENCLAVE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if _, err := message.ParseLanguage(c.Language); err != nil {
		return fmt.Errorf("language: %w", err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Realtime.ReconnectMultiplier != 0 && c.Realtime.ReconnectMultiplier < 1 {
		return fmt.Errorf("realtime.reconnect_multiplier must be >= 1, got %v", c.Realtime.ReconnectMultiplier)
	}
	return nil
}

// MessageLanguage is the parsed Language.
func (c *Config) MessageLanguage() message.Language {
	lang, err := message.ParseLanguage(c.Language)
	if err != nil {
		return message.LanguageEnglish
	}
	return lang
}

// APIClientConfig converts the api section.
func (c *Config) APIClientConfig() clients.APIConfig {
	return clients.APIConfig{
		BaseURL:           c.API.BaseURL,
		Timeout:           time.Duration(c.API.Timeout) * time.Second,
		RequestsPerSecond: c.API.RequestsPerSecond,
		Burst:             c.API.Burst,
		ReadAttempts:      c.API.ReadAttempts,
	}
}

// RealtimeOptions converts the realtime section. The push URL falls back
// to the API base URL.
func (c *Config) RealtimeOptions() realtime.Options {
	url := c.Realtime.URL
	if url == "" {
		url = c.API.BaseURL
	}
	return realtime.Options{
		URL:          url,
		PingInterval: time.Duration(c.Realtime.PingInterval) * time.Second,
		PongTimeout:  time.Duration(c.Realtime.PongTimeout) * time.Second,
		Backoff: realtime.Backoff{
			Initial:     time.Duration(c.Realtime.ReconnectInitialMs) * time.Millisecond,
			Max:         time.Duration(c.Realtime.ReconnectMaxMs) * time.Millisecond,
			Multiplier:  c.Realtime.ReconnectMultiplier,
			MaxAttempts: c.Realtime.MaxReconnectAttempts,
		},
	}
}

// NATSClientConfig converts the nats section.
func (c *Config) NATSClientConfig() clients.NATSConfig {
	return clients.NATSConfig{
		URL:     c.NATS.URL,
		Timeout: time.Duration(c.NATS.Timeout) * time.Second,
	}
}

// NewLogger builds a logrus logger from the log section.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if strings.EqualFold(c.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
