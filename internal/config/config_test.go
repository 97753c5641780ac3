package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrs "github.com/jamesprial/go-reddit-posts/pkg/errors"
)

// clearEnv unsets every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvClientID, EnvClientSecret, EnvUserAgent, EnvMaxConcurrency, EnvMaxAttempts, EnvLogLevel} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "id")
	t.Setenv(EnvClientSecret, "secret")
	t.Setenv(EnvUserAgent, "cli-test/1.0")
	t.Setenv(EnvMaxConcurrency, "3")
	t.Setenv(EnvMaxAttempts, "7")
	t.Setenv(EnvLogLevel, "debug")

	s, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, &Settings{
		ClientID:       "id",
		ClientSecret:   "secret",
		UserAgent:      "cli-test/1.0",
		MaxConcurrency: 3,
		MaxAttempts:    7,
		LogLevel:       "debug",
	}, s)
	assert.Equal(t, slog.LevelDebug, s.Level())
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "id")
	t.Setenv(EnvClientSecret, "secret")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"), "")
	require.NoError(t, err)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "from-env")
	envFile := writeFile(t, ".env", EnvClientSecret+"=from-file\n"+EnvClientID+"=ignored\n")

	s, err := Load(envFile, "")
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.ClientID)
	assert.Equal(t, "from-file", s.ClientSecret)
}

func TestLoad_YAMLOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "id")
	t.Setenv(EnvClientSecret, "secret")
	t.Setenv(EnvMaxAttempts, "2")

	path := writeFile(t, "reddit.yaml", `
userAgent: yaml-agent/2.0
maxAttempts: 9
baseUrl: http://localhost:8080
logLevel: warn
`)

	s, err := Load("", path)
	require.NoError(t, err)
	assert.Equal(t, "id", s.ClientID)
	assert.Equal(t, "yaml-agent/2.0", s.UserAgent)
	assert.Equal(t, 9, s.MaxAttempts)
	assert.Equal(t, "http://localhost:8080", s.BaseURL)
	assert.Equal(t, slog.LevelWarn, s.Level())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"missing id", map[string]string{EnvClientSecret: "s"}, EnvClientID},
		{"missing secret", map[string]string{EnvClientID: "id"}, EnvClientSecret},
		{"bad concurrency", map[string]string{EnvClientID: "id", EnvClientSecret: "s", EnvMaxConcurrency: "five"}, EnvMaxConcurrency},
		{"negative attempts", map[string]string{EnvClientID: "id", EnvClientSecret: "s", EnvMaxAttempts: "-1"}, EnvMaxAttempts},
		{"bad log level", map[string]string{EnvClientID: "id", EnvClientSecret: "s", EnvLogLevel: "loud"}, EnvLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("", "")
			var cfgErr *pkgerrs.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClientID, "id")
	t.Setenv(EnvClientSecret, "secret")

	_, err := Load("", writeFile(t, "bad.yaml", "maxAttempts: [1, 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")

	_, err = Load("", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClientConfig(t *testing.T) {
	s := &Settings{ClientID: "id", ClientSecret: "secret", MaxConcurrency: 2, MaxAttempts: 3}
	reg := prometheus.NewRegistry()

	cfg := s.ClientConfig(nil, reg)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	require.NotNil(t, cfg.Retry)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, reg, cfg.MetricsRegisterer)

	s.MaxAttempts = 0
	assert.Nil(t, s.ClientConfig(nil, nil).Retry)
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "DEBUG": slog.LevelDebug, "error": slog.LevelError, " warn ": slog.LevelWarn} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
