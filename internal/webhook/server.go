package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattjoyce/warelay/internal/forward"
	"github.com/mattjoyce/warelay/internal/whatsapp"
)

// Server represents the webhook HTTP server.
type Server struct {
	config    Config
	forwarder Forwarder
	logger    *slog.Logger
	server    *http.Server

	// inflight tracks detached forwards so shutdown can wait for them
	inflight sync.WaitGroup
}

// New creates a new webhook server instance.
func New(config Config, forwarder Forwarder, logger *slog.Logger) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}

	return &Server{
		config:    config,
		forwarder: forwarder,
		logger:    logger,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		if !s.Wait(shutdownCtx) {
			s.logger.Warn("shutdown timed out with forwards still in flight")
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Wait blocks until every detached forward has finished or ctx is done.
// It reports whether all forwards finished.
func (s *Server) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, s.handleHealth)
	r.Get(s.config.Path, s.handleVerify)
	r.Post(s.config.Path, s.handleEvent)

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if r.URL.Path == HealthPath {
			return
		}
		// Query strings carry the verify token; log the path only.
		s.logger.Debug("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

// VerifyChallenge answers Meta's subscription handshake. It returns the
// challenge and true when mode is "subscribe" and token matches verifyToken.
func VerifyChallenge(mode, token, challenge, verifyToken string) (string, bool) {
	if mode != ModeSubscribe || verifyToken == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(verifyToken)) != 1 {
		return "", false
	}
	return challenge, true
}

// handleVerify handles GET hub.challenge requests sent by "Verify and save".
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, ok := VerifyChallenge(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), s.config.VerifyToken)
	if !ok {
		s.logger.Warn("meta webhook verification failed", "mode", q.Get("hub.mode"))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	s.logger.Info("meta webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// handleEvent handles incoming webhook POST requests.
//
// The response is written before any processing: Meta expects an answer
// within its timeout and resends deliveries it considers failed.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	// Enforce body size limit
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
	if err != nil {
		s.logger.Warn("failed to read request body", "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if int64(len(body)) > s.config.MaxBodySize {
		s.logger.Warn("webhook payload too large", "path", r.URL.Path, "limit", s.config.MaxBodySize)
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	// Verify against the raw bytes, never a re-encoded body.
	signature := r.Header.Get(SignatureHeader)
	if err := verifyHMACSignature(body, signature, s.config.AppSecret); err != nil {
		s.logger.Warn("invalid or missing "+SignatureHeader,
			"path", r.URL.Path,
			"signature_present", signature != "",
			"request_id", middleware.GetReqID(r.Context()),
		)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.WriteHeader(http.StatusOK)

	// Keep request values (request id) but not its cancellation.
	s.dispatch(context.WithoutCancel(r.Context()), body)
}

// dispatch runs relay on a detached goroutine. Panics are recovered here
// so a bad payload cannot take the process down.
func (s *Server) dispatch(ctx context.Context, body []byte) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic while relaying message",
					"panic", rec,
					"request_id", middleware.GetReqID(ctx),
				)
			}
		}()
		s.relay(ctx, body)
	}()
}

// relay normalizes the payload and forwards it. Every failure is logged
// and swallowed; the caller has already been answered.
func (s *Server) relay(ctx context.Context, body []byte) {
	reqID := middleware.GetReqID(ctx)

	msg, ok, err := whatsapp.Normalize(body)
	if err != nil {
		s.logger.Warn("unprocessable webhook payload", "error", err, "request_id", reqID)
		return
	}
	if !ok {
		s.logger.Debug("non-message event received (likely status)", "request_id", reqID)
		return
	}

	if s.config.ForwardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ForwardTimeout)
		defer cancel()
	}

	res, err := s.forwarder.Forward(ctx, msg)
	if err != nil {
		var statusErr *forward.StatusError
		if errors.As(err, &statusErr) {
			s.logger.Error("forward to camunda failed",
				"status", statusErr.StatusCode,
				"body", statusErr.Body,
				"wa_message_id", msg.WAMessageID,
				"forward_id", res.ForwardID,
				"request_id", reqID,
			)
			return
		}
		s.logger.Error("error forwarding to camunda",
			"error", err,
			"wa_message_id", msg.WAMessageID,
			"forward_id", res.ForwardID,
			"request_id", reqID,
		)
		return
	}

	s.logger.Info("forwarded to camunda",
		"phone", msg.Phone,
		"wa_message_id", msg.WAMessageID,
		"status", res.StatusCode,
		"latency_ms", res.Latency.Milliseconds(),
		"forward_id", res.ForwardID,
		"request_id", reqID,
	)
	s.logger.Debug("forwarded message text", "text", msg.Text, "forward_id", res.ForwardID)
}
