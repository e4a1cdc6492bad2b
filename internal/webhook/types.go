package webhook

import (
	"context"
	"time"

	"github.com/mattjoyce/warelay/internal/forward"
	"github.com/mattjoyce/warelay/internal/whatsapp"
)

//go:generate mockgen -destination=mocks/mock_forwarder.go -package=mocks github.com/mattjoyce/warelay/internal/webhook Forwarder

// Forwarder delivers a normalized message downstream.
type Forwarder interface {
	Forward(ctx context.Context, msg whatsapp.Message) (forward.Result, error)
}

// Config holds webhook server configuration.
type Config struct {
	// Listen is the bind address, e.g. ":3000"
	Listen string

	// Path is the URL path registered with Meta (e.g. "/wa/webhook")
	Path string

	// VerifyToken is compared against hub.verify_token during the handshake
	VerifyToken string

	// AppSecret is the HMAC key for X-Hub-Signature-256
	AppSecret string

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64

	// ForwardTimeout bounds each detached forward (0 disables the deadline)
	ForwardTimeout time.Duration

	// ShutdownTimeout bounds HTTP shutdown and the wait for in-flight forwards
	ShutdownTimeout time.Duration
}

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultShutdownTimeout = 5 * time.Second

	// ModeSubscribe is the only hub.mode accepted by the handshake.
	ModeSubscribe = "subscribe"

	HealthPath = "/healthz"
)
