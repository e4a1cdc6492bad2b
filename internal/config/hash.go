package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a stable "blake3:<hex>" digest of the effective
// configuration. Secrets contribute only whether they are set, never their
// value, so a logged fingerprint cannot be used to guess them offline.
func (c *Config) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "port=%d\n", c.Service.Port)
	fmt.Fprintf(&b, "log_level=%s\n", c.Service.LogLevel)
	fmt.Fprintf(&b, "log_format=%s\n", c.Service.LogFormat)
	fmt.Fprintf(&b, "shutdown_timeout=%s\n", c.Service.ShutdownTimeout)
	fmt.Fprintf(&b, "webhook_path=%s\n", c.WhatsApp.WebhookPath)
	fmt.Fprintf(&b, "max_body_bytes=%d\n", c.WhatsApp.MaxBodyBytes)
	fmt.Fprintf(&b, "forward_url=%s\n", c.Forward.URL)
	fmt.Fprintf(&b, "forward_username=%s\n", c.Forward.Username)
	fmt.Fprintf(&b, "forward_timeout=%s\n", c.Forward.Timeout)
	fmt.Fprintf(&b, "verify_token_set=%t\n", c.WhatsApp.VerifyToken != "")
	fmt.Fprintf(&b, "app_secret_set=%t\n", c.WhatsApp.AppSecret != "")
	fmt.Fprintf(&b, "forward_password_set=%t\n", c.Forward.Password != "")

	sum := blake3.Sum256([]byte(b.String()))
	return "blake3:" + hex.EncodeToString(sum[:])
}
