package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// AuditPath is the bbolt file refuse decisions are journaled to.
	// Empty disables audit persistence.
	AuditPath string `koanf:"audit_path"`

	// BloomFPRate is the target false-positive rate for the anchor prefilter.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"required,gt=0,lt=1"`

	// CacheSize is the capacity of the decision cache. Zero disables caching.
	CacheSize int `koanf:"cache_size" validate:"gte=0"`

	// CiteAll makes refusal messages cite every triggering rule instead of
	// the first by registry order.
	CiteAll bool `koanf:"cite_all"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// MatchTimeoutMS bounds one full evaluation pass, in milliseconds.
	// Evaluations that exceed it fail closed.
	MatchTimeoutMS int `koanf:"match_timeout_ms" validate:"required,gte=1"`

	// MaxInputBytes bounds the size of a single submission. Larger inputs
	// fail closed without running any pattern.
	MaxInputBytes int `koanf:"max_input_bytes" validate:"required,gte=1"`

	// MetricsAddr is the listen address for the Prometheus /metrics endpoint.
	// Empty disables the metrics listener.
	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,listen_addr"`

	// Port is the network port the evaluation gateway will bind to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// RulesDir is the directory rule files are loaded from.
	RulesDir string `koanf:"rules_dir" validate:"required"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings
// for the policy gate. Audit and metrics are off until pointed somewhere.
var DEFAULT_APP_CONFIG = AppConfig{
	AuditPath:      "",
	BloomFPRate:    0.01,
	CacheSize:      1024,
	CiteAll:        false,
	Env:            "prod",
	LogLevel:       "info",
	MatchTimeoutMS: 500,
	MaxInputBytes:  1 << 20, // 1 MiB
	MetricsAddr:    "",
	Port:           8053,
	RulesDir:       "/etc/codegate/rules/",
}

// validListenAddr validates whether the provided field value is a usable
// listen address in "host:port" form. The host part may be empty (bind all
// interfaces) but the port must be a number between 1 and 65535.
func validListenAddr(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader is a function that loads environment variables with the prefix
// "GATE_". It transforms the keys to lowercase and removes the prefix,
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "GATE_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "GATE_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default configuration values into the provided Koanf
// instance using the structs provider and the DEFAULT_APP_CONFIG struct.
// It returns an error if loading fails.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "listen_addr" validation function
// with the provided validator. Returns an error if registration fails.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("listen_addr", validListenAddr)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Load default values using structs provider.
	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	// Load environment variables with prefix "GATE_".
	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	// Unmarshal the loaded configuration into AppConfig struct.
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Validate the configuration.
	validate := validator.New(validator.WithRequiredStructEnabled())

	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
