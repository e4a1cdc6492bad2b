package config

import "time"

// Config represents the complete warelay configuration.
// It is built once by Load and treated as read-only afterwards.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Forward  ForwardConfig  `yaml:"forward"`
}

// ServiceConfig defines process-level settings.
type ServiceConfig struct {
	Port            int           `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`  // silent, info, debug, warn, error
	LogFormat       string        `yaml:"log_format"` // json or text
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// WhatsAppConfig defines the inbound side: handshake token, app secret
// and the webhook path registered with Meta.
type WhatsAppConfig struct {
	WebhookPath string `yaml:"webhook_path"`
	VerifyToken string `yaml:"verify_token"`

	// AppSecret is the HMAC key for X-Hub-Signature-256 (Developer App → Settings → Basic).
	AppSecret string `yaml:"app_secret"`

	// MaxBodySize accepts "1MB", "512KB" or a plain byte count.
	MaxBodySize  string `yaml:"max_body_size"`
	MaxBodyBytes int64  `yaml:"-"`
}

// ForwardConfig defines the downstream Camunda webhook start event.
type ForwardConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default values
const (
	DefaultPort            = 3000
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultWebhookPath     = "/wa/webhook"
	DefaultVerifyToken     = "ThisIsATest"
	DefaultMaxBodySize     = "1MB"
	DefaultForwardURL      = "http://localhost:8085/inbound/whatsapp"
	DefaultForwardUsername = "webhook"
	DefaultForwardPassword = "test123"
	DefaultForwardTimeout  = 10 * time.Second
)

// Environment variable names.
const (
	EnvPort            = "PORT"
	EnvVerifyToken     = "WA_VERIFY_TOKEN"
	EnvAppSecret       = "WA_APP_SECRET"
	EnvWebhookPath     = "WEBHOOK_PATH"
	EnvMaxBodySize     = "MAX_BODY_SIZE"
	EnvForwardURL      = "CAMUNDA_WEBHOOK_URL"
	EnvForwardUsername = "CAMUNDA_BASIC_USER"
	EnvForwardPassword = "CAMUNDA_BASIC_PASS"
	EnvForwardTimeout  = "FORWARD_TIMEOUT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
)

// Defaults returns a Config with every optional value filled in.
// AppSecret has no default.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Port:            DefaultPort,
			LogLevel:        DefaultLogLevel,
			LogFormat:       DefaultLogFormat,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		WhatsApp: WhatsAppConfig{
			WebhookPath: DefaultWebhookPath,
			VerifyToken: DefaultVerifyToken,
			MaxBodySize: DefaultMaxBodySize,
		},
		Forward: ForwardConfig{
			URL:      DefaultForwardURL,
			Username: DefaultForwardUsername,
			Password: DefaultForwardPassword,
			Timeout:  DefaultForwardTimeout,
		},
	}
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.WhatsApp.AppSecret = mask(c.WhatsApp.AppSecret)
	out.WhatsApp.VerifyToken = mask(c.WhatsApp.VerifyToken)
	out.Forward.Password = mask(c.Forward.Password)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
