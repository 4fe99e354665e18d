package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// SignatureHeader carries the hex HMAC-SHA256 digest of the raw body.
const SignatureHeader = "X-RevenueCat-Signature"

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
)

// SignatureVerifier authenticates webhook deliveries with an HMAC-SHA256
// digest over the raw request body. An empty secret disables verification
// entirely; that is a deployment opt-out, not a default.
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (v *SignatureVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify checks the sender signature against the raw, unparsed body bytes.
// It must run before any JSON parsing: re-serializing a parsed payload can
// change the bytes under the digest.
func (v *SignatureVerifier) Verify(rawBody []byte, signature string) error {
	if !v.Enabled() {
		return nil
	}
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
