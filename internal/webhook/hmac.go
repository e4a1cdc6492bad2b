package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// SignatureHeader is the header Meta uses for the body signature.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

// ValidSignature reports whether signature equals
// "sha256=" + hex(HMAC-SHA256(secret, body)). It fails closed: an empty
// signature or secret is never valid.
func ValidSignature(body []byte, signature, secret string) bool {
	return verifyHMACSignature(body, signature, secret) == nil
}

// verifyHMACSignature verifies an X-Hub-Signature-256 value against the raw
// request body.
//
// The full header string is compared with crypto/subtle. A length mismatch
// fails without inspecting content; the expected length is public anyway.
// All errors are generic to prevent information leakage.
func verifyHMACSignature(body []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook verification failed")
	}

	if signature == "" {
		return fmt.Errorf("webhook verification failed")
	}

	expected := Sign(body, secret)
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return fmt.Errorf("webhook verification failed")
	}

	return nil
}

// Sign returns the X-Hub-Signature-256 header value for body.
func Sign(body []byte, secret string) string {
	return signaturePrefix + computeExpectedSignature(body, secret)
}

// computeExpectedSignature computes the hex HMAC-SHA256 of body.
func computeExpectedSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
