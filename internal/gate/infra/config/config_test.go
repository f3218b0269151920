package config

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DEFAULT_APP_CONFIG.BloomFPRate, cfg.BloomFPRate)
	assert.Equal(t, DEFAULT_APP_CONFIG.CacheSize, cfg.CacheSize)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 500, cfg.MatchTimeoutMS)
	assert.Equal(t, 1<<20, cfg.MaxInputBytes)
	assert.Equal(t, 8053, cfg.Port)
	assert.Equal(t, "/etc/codegate/rules/", cfg.RulesDir)
	assert.Empty(t, cfg.AuditPath)
	assert.Empty(t, cfg.MetricsAddr)
	assert.False(t, cfg.CiteAll)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GATE_PORT", "9000")
	t.Setenv("GATE_ENV", "dev")
	t.Setenv("GATE_LOG_LEVEL", "debug")
	t.Setenv("GATE_RULES_DIR", "/tmp/rules")
	t.Setenv("GATE_CACHE_SIZE", "0")
	t.Setenv("GATE_CITE_ALL", "true")
	t.Setenv("GATE_AUDIT_PATH", "/var/lib/codegate/audit.db")
	t.Setenv("GATE_METRICS_ADDR", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/rules", cfg.RulesDir)
	assert.Equal(t, 0, cfg.CacheSize)
	assert.True(t, cfg.CiteAll)
	assert.Equal(t, "/var/lib/codegate/audit.db", cfg.AuditPath)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad env", "GATE_ENV", "staging"},
		{"bad log level", "GATE_LOG_LEVEL", "verbose"},
		{"port too large", "GATE_PORT", "70000"},
		{"zero timeout", "GATE_MATCH_TIMEOUT_MS", "0"},
		{"zero max input", "GATE_MAX_INPUT_BYTES", "0"},
		{"fp rate out of range", "GATE_BLOOM_FP_RATE", "1.5"},
		{"negative cache", "GATE_CACHE_SIZE", "-1"},
		{"bad metrics addr", "GATE_METRICS_ADDR", "nonsense"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidListenAddr(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("listen_addr", validListenAddr))

	type holder struct {
		Addr string `validate:"listen_addr"`
	}

	assert.NoError(t, v.Struct(holder{Addr: ":9090"}))
	assert.NoError(t, v.Struct(holder{Addr: "127.0.0.1:9090"}))
	assert.Error(t, v.Struct(holder{Addr: "127.0.0.1"}))
	assert.Error(t, v.Struct(holder{Addr: "127.0.0.1:"}))
	assert.Error(t, v.Struct(holder{Addr: "127.0.0.1:0"}))
	assert.Error(t, v.Struct(holder{Addr: "127.0.0.1:99999"}))
}

func TestLoad_LoaderErrors(t *testing.T) {
	origDefault := defaultLoader
	origEnv := envLoader
	origReg := registerValidation
	t.Cleanup(func() {
		defaultLoader = origDefault
		envLoader = origEnv
		registerValidation = origReg
	})

	defaultLoader = func(k *koanf.Koanf) error { return errors.New("boom") }
	_, err := Load()
	assert.ErrorContains(t, err, "default config")
	defaultLoader = origDefault

	envLoader = func(k *koanf.Koanf) error { return errors.New("boom") }
	_, err = Load()
	assert.ErrorContains(t, err, "loading env")
	envLoader = origEnv

	registerValidation = func(v *validator.Validate) error { return errors.New("boom") }
	_, err = Load()
	assert.ErrorContains(t, err, "registering validation")
}
