package webhook

import (
	"fmt"
	"strconv"

	"github.com/mattjoyce/warelay/internal/config"
)

// FromGlobalConfig converts the loaded config.Config to webhook.Config.
func FromGlobalConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	if cfg.WhatsApp.AppSecret == "" {
		return Config{}, fmt.Errorf("webhook endpoint %q: no app secret configured", cfg.WhatsApp.WebhookPath)
	}

	return Config{
		Listen:          ":" + strconv.Itoa(cfg.Service.Port),
		Path:            cfg.WhatsApp.WebhookPath,
		VerifyToken:     cfg.WhatsApp.VerifyToken,
		AppSecret:       cfg.WhatsApp.AppSecret,
		MaxBodySize:     cfg.WhatsApp.MaxBodyBytes,
		ForwardTimeout:  cfg.Forward.Timeout,
		ShutdownTimeout: cfg.Service.ShutdownTimeout,
	}, nil
}
