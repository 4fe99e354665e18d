package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignatureVerifier_ValidSignature(t *testing.T) {
	body := []byte(`{"event":{"type":"INITIAL_PURCHASE"}}`)
	v := NewSignatureVerifier("topsecret")

	require.True(t, v.Enabled())
	require.NoError(t, v.Verify(body, sign("topsecret", body)))
}

func TestSignatureVerifier_InvalidSignature(t *testing.T) {
	body := []byte(`{"event":{"type":"INITIAL_PURCHASE"}}`)
	v := NewSignatureVerifier("topsecret")

	err := v.Verify(body, sign("wrong-secret", body))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	err = v.Verify(body, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSignatureVerifier_MissingSignature(t *testing.T) {
	v := NewSignatureVerifier("topsecret")

	err := v.Verify([]byte(`{}`), "")
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestSignatureVerifier_NoSecretAcceptsAnything(t *testing.T) {
	v := NewSignatureVerifier("")

	require.False(t, v.Enabled())
	assert.NoError(t, v.Verify([]byte(`{}`), ""))
	assert.NoError(t, v.Verify([]byte(`{}`), "garbage"))
}

func TestSignatureVerifier_DigestCoversExactBytes(t *testing.T) {
	v := NewSignatureVerifier("topsecret")

	// Semantically identical JSON with different whitespace must not
	// validate against a signature computed over the original bytes.
	original := []byte(`{"event":{"type":"RENEWAL"}}`)
	reencoded := []byte(`{ "event": { "type": "RENEWAL" } }`)
	sig := sign("topsecret", original)

	require.NoError(t, v.Verify(original, sig))
	assert.ErrorIs(t, v.Verify(reencoded, sig), ErrInvalidSignature)
}
