// Package config loads command-line settings from a .env file, the
// environment and an optional YAML file, in increasing order of precedence.
package config

import (
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	reddit "github.com/jamesprial/go-reddit-posts"
	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
)

// Environment variables read by Load.
const (
	EnvClientID       = "REDDIT_CLIENT_ID"
	EnvClientSecret   = "REDDIT_CLIENT_SECRET"
	EnvUserAgent      = "REDDIT_USER_AGENT"
	EnvMaxConcurrency = "REDDIT_MAX_CONCURRENCY"
	EnvMaxAttempts    = "REDDIT_MAX_ATTEMPTS"
	EnvLogLevel       = "LOG_LEVEL"
)

type Settings struct {
	ClientID       string `yaml:"clientId"`
	ClientSecret   string `yaml:"clientSecret"`
	UserAgent      string `yaml:"userAgent"`
	BaseURL        string `yaml:"baseUrl"`
	AuthURL        string `yaml:"authUrl"`
	MaxConcurrency int    `yaml:"maxConcurrency"`
	MaxAttempts    int    `yaml:"maxAttempts"`
	LogLevel       string `yaml:"logLevel"`
}

// Load reads envFile (skipped when missing) into the process environment
// without overriding variables already set, builds Settings from the
// environment, then applies yamlPath on top when it is non-empty.
// Missing credentials are reported as a *ConfigError.
func Load(envFile, yamlPath string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "load %s", envFile)
		}
	}

	s, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if yamlPath != "" {
		if err := s.applyYAML(yamlPath); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func fromEnv() (*Settings, error) {
	s := &Settings{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		UserAgent:    os.Getenv(EnvUserAgent),
		LogLevel:     loadOptional(EnvLogLevel, "INFO"),
	}

	var err error
	if s.MaxConcurrency, err = loadInt(EnvMaxConcurrency); err != nil {
		return nil, err
	}
	if s.MaxAttempts, err = loadInt(EnvMaxAttempts); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}

	override(&s.ClientID, file.ClientID)
	override(&s.ClientSecret, file.ClientSecret)
	override(&s.UserAgent, file.UserAgent)
	override(&s.BaseURL, file.BaseURL)
	override(&s.AuthURL, file.AuthURL)
	override(&s.LogLevel, file.LogLevel)
	override(&s.MaxConcurrency, file.MaxConcurrency)
	override(&s.MaxAttempts, file.MaxAttempts)
	return nil
}

// Validate checks that credentials are present and numeric settings are sane.
func (s *Settings) Validate() error {
	if s.ClientID == "" {
		return &pkgerrs.ConfigError{Field: EnvClientID, Message: "client id is required"}
	}
	if s.ClientSecret == "" {
		return &pkgerrs.ConfigError{Field: EnvClientSecret, Message: "client secret is required"}
	}
	if s.MaxConcurrency < 0 {
		return &pkgerrs.ConfigError{Field: EnvMaxConcurrency, Message: "must not be negative"}
	}
	if s.MaxAttempts < 0 {
		return &pkgerrs.ConfigError{Field: EnvMaxAttempts, Message: "must not be negative"}
	}
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return &pkgerrs.ConfigError{Field: EnvLogLevel, Message: err.Error()}
	}
	return nil
}

// Level returns the parsed log level, INFO when unset or invalid.
func (s *Settings) Level() slog.Level {
	lvl, err := ParseLogLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ClientConfig converts the settings into a client configuration.
func (s *Settings) ClientConfig(logger *slog.Logger, reg prometheus.Registerer) *reddit.Config {
	cfg := &reddit.Config{
		ClientID:          s.ClientID,
		ClientSecret:      s.ClientSecret,
		UserAgent:         s.UserAgent,
		BaseURL:           s.BaseURL,
		AuthURL:           s.AuthURL,
		MaxConcurrency:    s.MaxConcurrency,
		Logger:            logger,
		MetricsRegisterer: reg,
	}
	if s.MaxAttempts > 0 {
		retry := reddit.DefaultRetryPolicy()
		retry.MaxAttempts = s.MaxAttempts
		cfg.Retry = &retry
	}
	return cfg
}

// ParseLogLevel parses DEBUG, INFO, WARN or ERROR, case-insensitively.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}

func loadOptional(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func loadInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &pkgerrs.ConfigError{Field: key, Message: "must be an integer, got " + strconv.Quote(value)}
	}
	return n, nil
}

func override[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
