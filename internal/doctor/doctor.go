// Package doctor reports configuration problems before the relay goes live.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/mattjoyce/warelay/internal/config"
)

// minSecretLength is the shortest app secret accepted without a warning.
// Meta issues 32-character hex secrets.
const minSecretLength = 16

var unresolvedVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Result holds the outcome of a validation run.
type Result struct {
	Valid       bool    `json:"valid"`
	Fingerprint string  `json:"fingerprint,omitempty"`
	Errors      []Issue `json:"errors,omitempty"`
	Warnings    []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor inspects a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true, Fingerprint: d.cfg.Fingerprint()}

	d.validateRequired(r)
	d.validateService(r)
	d.validateWebhookPath(r)
	d.warnDefaultCredentials(r)
	d.warnWeakSecret(r)
	d.validateForwardURL(r)
	d.warnTimeouts(r)
	d.warnVerboseLogging(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateRequired checks the values the relay cannot run without.
func (d *Doctor) validateRequired(r *Result) {
	required := []struct {
		category, field, what, env, value string
	}{
		{"whatsapp", "whatsapp.app_secret", "app secret", config.EnvAppSecret, d.cfg.WhatsApp.AppSecret},
		{"forward", "forward.url", "downstream URL", config.EnvForwardURL, d.cfg.Forward.URL},
		{"forward", "forward.password", "downstream password", config.EnvForwardPassword, d.cfg.Forward.Password},
	}
	for _, req := range required {
		if req.value == "" {
			d.addError(r, req.category, req.field,
				fmt.Sprintf("%s is required (set %s)", req.what, req.env))
			continue
		}
		if m := unresolvedVar.FindStringSubmatch(req.value); m != nil {
			d.addError(r, req.category, req.field,
				fmt.Sprintf("environment variable ${%s} is not set", m[1]))
		}
	}
}

func (d *Doctor) validateService(r *Result) {
	svc := d.cfg.Service
	if svc.Port <= 0 || svc.Port > 65535 {
		d.addError(r, "service", "service.port",
			fmt.Sprintf("port must be between 1 and 65535 (got %d)", svc.Port))
	}
	switch svc.LogLevel {
	case "silent", "info", "debug", "warn", "error":
	default:
		d.addError(r, "service", "service.log_level",
			fmt.Sprintf("unknown log level %q (silent, info, debug, warn, error)", svc.LogLevel))
	}
	if svc.LogFormat != "json" && svc.LogFormat != "text" {
		d.addError(r, "service", "service.log_format",
			fmt.Sprintf("log format must be json or text (got %q)", svc.LogFormat))
	}
	if svc.ShutdownTimeout < 0 {
		d.addError(r, "service", "service.shutdown_timeout", "shutdown timeout must not be negative")
	}
}

func (d *Doctor) validateWebhookPath(r *Result) {
	path := d.cfg.WhatsApp.WebhookPath
	if !strings.HasPrefix(path, "/") {
		d.addError(r, "whatsapp", "whatsapp.webhook_path",
			fmt.Sprintf("webhook path must start with / (got %q)", path))
	}
	if path == "/healthz" {
		d.addError(r, "whatsapp", "whatsapp.webhook_path", "webhook path collides with /healthz")
	}
}

// warnDefaultCredentials flags built-in defaults that should be overridden.
func (d *Doctor) warnDefaultCredentials(r *Result) {
	if d.cfg.WhatsApp.VerifyToken == config.DefaultVerifyToken {
		d.addWarning(r, "whatsapp", "whatsapp.verify_token",
			fmt.Sprintf("verify token is the built-in default; set %s", config.EnvVerifyToken))
	}
	if d.cfg.Forward.Password == config.DefaultForwardPassword {
		d.addWarning(r, "forward", "forward.password",
			fmt.Sprintf("downstream password is the built-in default; set %s", config.EnvForwardPassword))
	}
	if d.cfg.Forward.URL == config.DefaultForwardURL {
		d.addWarning(r, "forward", "forward.url",
			fmt.Sprintf("downstream URL is the built-in default; set %s", config.EnvForwardURL))
	}
}

func (d *Doctor) warnWeakSecret(r *Result) {
	secret := d.cfg.WhatsApp.AppSecret
	if secret != "" && len(secret) < minSecretLength {
		d.addWarning(r, "whatsapp", "whatsapp.app_secret",
			fmt.Sprintf("app secret is shorter than %d characters; is it the Meta app secret?", minSecretLength))
	}
}

// validateForwardURL checks the downstream URL shape and transport.
func (d *Doctor) validateForwardURL(r *Result) {
	if d.cfg.Forward.URL == "" {
		return
	}

	u, err := url.Parse(d.cfg.Forward.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		d.addError(r, "forward", "forward.url",
			fmt.Sprintf("downstream URL %q is not an absolute http(s) URL", d.cfg.Forward.URL))
		return
	}

	if u.User != nil {
		d.addWarning(r, "forward", "forward.url",
			"downstream URL embeds credentials; use forward.username/password instead")
	}

	if u.Scheme == "http" && !isLoopback(u.Hostname()) {
		d.addWarning(r, "forward", "forward.url",
			"downstream URL uses plain http; Basic credentials travel unencrypted")
	}
}

func (d *Doctor) warnTimeouts(r *Result) {
	if d.cfg.Forward.Timeout < 0 {
		d.addError(r, "forward", "forward.timeout", "downstream timeout must not be negative")
		return
	}
	if d.cfg.Forward.Timeout == 0 {
		d.addWarning(r, "forward", "forward.timeout",
			"no downstream timeout; a slow workflow engine can pile up in-flight forwards")
	}
}

func (d *Doctor) warnVerboseLogging(r *Result) {
	if strings.EqualFold(d.cfg.Service.LogLevel, "debug") {
		d.addWarning(r, "service", "service.log_level",
			"debug logging writes message text to the log")
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// FormatHuman renders the result for terminal output.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	if r.Fingerprint != "" {
		fmt.Fprintf(&b, "fingerprint: %s\n", r.Fingerprint)
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
