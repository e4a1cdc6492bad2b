package webhook

import (
	"strings"
	"testing"
)

func TestVerifyHMACSignature(t *testing.T) {
	secret := "test-secret-key"
	body := []byte(`{"object":"whatsapp_business_account","entry":[]}`)

	// Compute expected signature
	expectedSig := Sign(body, secret)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		wantErr   bool
	}{
		{
			name:      "valid signature",
			body:      body,
			signature: expectedSig,
			secret:    secret,
			wantErr:   false,
		},
		{
			name:      "valid signature - empty body",
			body:      []byte{},
			signature: Sign([]byte{}, secret),
			secret:    secret,
			wantErr:   false,
		},
		{
			name:      "invalid signature - plain hex without prefix",
			body:      body,
			signature: computeExpectedSignature(body, secret),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - uppercase hex",
			body:      body,
			signature: "sha256=" + strings.ToUpper(computeExpectedSignature(body, secret)),
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - wrong signature",
			body:      body,
			signature: "sha256=0000000000000000000000000000000000000000000000000000000000000000",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - tampered body",
			body:      []byte(`{"object":"whatsapp_business_account","entry":[{}]}`),
			signature: expectedSig,
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - re-encoded body",
			body:      []byte(`{"object": "whatsapp_business_account", "entry": []}`),
			signature: expectedSig,
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - wrong secret",
			body:      body,
			signature: expectedSig,
			secret:    "wrong-secret",
			wantErr:   true,
		},
		{
			name:      "invalid signature - empty signature",
			body:      body,
			signature: "",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - empty secret",
			body:      body,
			signature: expectedSig,
			secret:    "",
			wantErr:   true,
		},
		{
			name:      "invalid signature - truncated",
			body:      body,
			signature: expectedSig[:len(expectedSig)-1],
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "invalid signature - malformed",
			body:      body,
			signature: "sha256=not-valid-hex",
			secret:    secret,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyHMACSignature(tt.body, tt.signature, tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("verifyHMACSignature() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := ValidSignature(tt.body, tt.signature, tt.secret); got == tt.wantErr {
				t.Errorf("ValidSignature() = %v, want %v", got, !tt.wantErr)
			}

			// All errors should be generic (no information leakage)
			if err != nil && err.Error() != "webhook verification failed" {
				t.Errorf("error should be generic, got: %v", err)
			}
		})
	}
}

func TestSign_KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign([]byte("what do ya want for nothing?"), "Jefe")
	want := "sha256=5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestValidSignature_AnyByteFlip(t *testing.T) {
	secret := "app-secret"
	body := []byte(`{"entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"text"}]}}]}]}`)
	sig := Sign(body, secret)

	for i := range body {
		tampered := append([]byte(nil), body...)
		tampered[i] ^= 0x01
		if ValidSignature(tampered, sig, secret) {
			t.Fatalf("flipping byte %d should invalidate the signature", i)
		}
	}

	if ValidSignature(body, sig, secret+"x") {
		t.Error("changed secret should invalidate the signature")
	}
}

func TestComputeExpectedSignature(t *testing.T) {
	body := []byte("test payload")
	secret := "test-secret"

	sig := computeExpectedSignature(body, secret)

	// Should return lowercase hex string
	if len(sig) != 64 { // SHA256 = 32 bytes = 64 hex chars
		t.Errorf("signature length = %d, want 64", len(sig))
	}

	// Should be deterministic
	sig2 := computeExpectedSignature(body, secret)
	if sig != sig2 {
		t.Error("signature should be deterministic")
	}

	// Different body should produce different signature
	sig3 := computeExpectedSignature([]byte("different"), secret)
	if sig == sig3 {
		t.Error("different body should produce different signature")
	}
}
