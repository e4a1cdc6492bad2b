// Package webhook implements the WhatsApp Cloud API webhook endpoint.
//
// Meta calls the endpoint twice over its lifetime: once with GET to verify
// ownership when the URL is registered, then with POST for every event.
// Each POST is authenticated with HMAC-SHA256 over the raw body using the
// app secret, then acknowledged immediately; the message is normalized and
// forwarded to Camunda afterwards on a detached goroutine.
//
// # Security Model
//
// - HMAC-SHA256 signatures verified using crypto/subtle (constant-time comparison)
// - Signature computed over the raw request bytes, never a re-encoded body
// - Body size limits enforced to prevent DoS attacks
// - Verify token compared in constant time
// - Request logging excludes payloads and query strings
//
// # Request Flow
//
//  1. HTTP POST arrives at the configured path
//  2. Body size checked (reject with 413 if too large)
//  3. X-Hub-Signature-256 compared against "sha256=" + HMAC (reject with 401 if mismatch)
//  4. 200 OK returned
//  5. First message extracted and normalized (status updates are ignored)
//  6. Message POSTed to Camunda with Basic auth; failures are logged, never retried
//
// # Endpoints
//
//   - GET  <path>    hub.mode, hub.verify_token, hub.challenge → 200 challenge or 403
//   - POST <path>    event delivery → 200, 401 or 413
//   - GET  /healthz  liveness → 200 "ok"
//
// # Example Usage
//
//	cfg := webhook.Config{
//		Listen:      ":3000",
//		Path:        "/wa/webhook",
//		VerifyToken: os.Getenv("WA_VERIFY_TOKEN"),
//		AppSecret:   os.Getenv("WA_APP_SECRET"),
//	}
//
//	server := webhook.New(cfg, forward.New(fwdCfg), logger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
