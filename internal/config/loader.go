package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration. Sources, lowest precedence first:
// built-in defaults, the YAML file at configPath (optional), the dotenv
// file at envFile (optional, missing file is ignored) and the process
// environment.
func Load(configPath, envFile string) (*Config, error) {
	lookup, err := envLookup(envFile)
	if err != nil {
		return nil, err
	}
	return LoadWithLookup(configPath, lookup)
}

// LoadWithLookup is Load with an explicit variable source.
func LoadWithLookup(configPath string, lookup LookupFunc) (*Config, error) {
	cfg, err := loadUnvalidated(configPath, lookup)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadUnvalidated layers the same sources as Load but skips validation,
// so a health report can list every problem instead of the first one.
// Syntax errors (unreadable files, unparseable numbers) still fail.
func LoadUnvalidated(configPath, envFile string) (*Config, error) {
	lookup, err := envLookup(envFile)
	if err != nil {
		return nil, err
	}
	return loadUnvalidated(configPath, lookup)
}

func loadUnvalidated(configPath string, lookup LookupFunc) (*Config, error) {
	// Start from defaults so an explicit zero (forward.timeout: 0s) survives.
	cfg := Defaults()
	if configPath != "" {
		if err := loadConfigFile(configPath, lookup, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	cfg = applyConfigDefaults(cfg)

	size, err := ParseSize(cfg.WhatsApp.MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: whatsapp.max_body_size %q: %w", cfg.WhatsApp.MaxBodySize, err)
	}
	cfg.WhatsApp.MaxBodyBytes = size

	return cfg, nil
}

// envLookup layers the dotenv file under the process environment.
// Reading the file (rather than godotenv.Load) keeps the process environment
// untouched. Empty process variables fall through to the file, consistent
// with applyEnv treating them as unset.
func envLookup(envFile string) (LookupFunc, error) {
	if envFile == "" {
		return os.LookupEnv, nil
	}

	fileVars, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.LookupEnv, nil
		}
		return nil, fmt.Errorf("failed to read env file %q: %w", envFile, err)
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}, nil
}

// loadConfigFile parses the YAML config file over cfg; keys absent from
// the file keep their current value.
func loadConfigFile(path string, lookup LookupFunc, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	interpolated := interpolateEnv(string(data), lookup)

	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML %q: %w", path, err)
	}

	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string, lookup LookupFunc) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := lookup(varName); exists {
			return value
		}
		// Left in place; validate reports it if the field is required.
		return match
	})
}

// applyEnv overrides file values with environment variables.
// A variable set to an empty string counts as unset.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		cfg.Service.Port = port
	}

	if v, ok := get(EnvForwardTimeout); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", EnvForwardTimeout, v, err)
		}
		cfg.Forward.Timeout = d
	}

	bindings := []struct {
		key string
		dst *string
	}{
		{EnvVerifyToken, &cfg.WhatsApp.VerifyToken},
		{EnvAppSecret, &cfg.WhatsApp.AppSecret},
		{EnvWebhookPath, &cfg.WhatsApp.WebhookPath},
		{EnvMaxBodySize, &cfg.WhatsApp.MaxBodySize},
		{EnvForwardURL, &cfg.Forward.URL},
		{EnvForwardUsername, &cfg.Forward.Username},
		{EnvForwardPassword, &cfg.Forward.Password},
		{EnvLogLevel, &cfg.Service.LogLevel},
		{EnvLogFormat, &cfg.Service.LogFormat},
	}
	for _, b := range bindings {
		if v, ok := get(b.key); ok {
			*b.dst = v
		}
	}

	return nil
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Port == 0 {
		cfg.Service.Port = defaults.Service.Port
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	cfg.Service.LogLevel = strings.ToLower(cfg.Service.LogLevel)
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}
	cfg.Service.LogFormat = strings.ToLower(cfg.Service.LogFormat)
	if cfg.Service.ShutdownTimeout == 0 {
		cfg.Service.ShutdownTimeout = defaults.Service.ShutdownTimeout
	}

	if cfg.WhatsApp.WebhookPath == "" {
		cfg.WhatsApp.WebhookPath = defaults.WhatsApp.WebhookPath
	}
	if cfg.WhatsApp.VerifyToken == "" {
		cfg.WhatsApp.VerifyToken = defaults.WhatsApp.VerifyToken
	}
	if cfg.WhatsApp.MaxBodySize == "" {
		cfg.WhatsApp.MaxBodySize = defaults.WhatsApp.MaxBodySize
	}

	if cfg.Forward.URL == "" {
		cfg.Forward.URL = defaults.Forward.URL
	}
	if cfg.Forward.Username == "" {
		cfg.Forward.Username = defaults.Forward.Username
	}
	if cfg.Forward.Password == "" {
		cfg.Forward.Password = defaults.Forward.Password
	}
	return cfg
}

// Validate performs basic validation on the configuration.
func Validate(cfg *Config) error {
	required := []struct {
		field string
		env   string
		value string
	}{
		{"whatsapp.app_secret", EnvAppSecret, cfg.WhatsApp.AppSecret},
		{"forward.url", EnvForwardURL, cfg.Forward.URL},
		{"forward.password", EnvForwardPassword, cfg.Forward.Password},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required (set %s)", r.field, r.env)
		}
		if matches := envVarPattern.FindStringSubmatch(r.value); len(matches) > 1 {
			return fmt.Errorf("%s: environment variable ${%s} is not set", r.field, matches[1])
		}
	}

	if cfg.Service.Port <= 0 || cfg.Service.Port > 65535 {
		return fmt.Errorf("service.port must be between 1 and 65535 (got %d)", cfg.Service.Port)
	}

	validLogLevels := map[string]bool{"silent": true, "info": true, "debug": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: silent, info, debug, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}
	if cfg.Service.ShutdownTimeout < 0 {
		return fmt.Errorf("service.shutdown_timeout must not be negative")
	}

	if !strings.HasPrefix(cfg.WhatsApp.WebhookPath, "/") {
		return fmt.Errorf("whatsapp.webhook_path must start with / (got %q)", cfg.WhatsApp.WebhookPath)
	}
	if cfg.WhatsApp.WebhookPath == "/healthz" {
		return fmt.Errorf("whatsapp.webhook_path must not collide with /healthz")
	}

	u, err := url.Parse(cfg.Forward.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("forward.url must be an absolute http(s) URL (got %q)", cfg.Forward.URL)
	}
	if cfg.Forward.Timeout < 0 {
		return fmt.Errorf("forward.timeout must not be negative")
	}

	return nil
}

// ParseSize parses size strings like "1MB", "512KB", "1048576" to bytes.
func ParseSize(size string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
