package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinkflag/backend/internal/config"
	"github.com/pinkflag/backend/internal/dto"
	"github.com/pinkflag/backend/internal/middleware"
	"github.com/pinkflag/backend/internal/services"
)

// fakeLedger emulates the atomic crediting primitive: at most one
// application per transaction id, duplicates observe the committed balance.
type fakeLedger struct {
	calls   int
	err     error
	balance int
	applied map[string]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{applied: make(map[string]int)}
}

func (f *fakeLedger) ApplyPurchaseCredit(_ context.Context, userID string, credits int, transactionID, note string) (*services.LedgerResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.applied[transactionID]; ok {
		return &services.LedgerResult{Duplicate: true, CreditsAdded: 0, Credits: f.balance}, nil
	}
	f.balance += credits
	f.applied[transactionID] = credits
	return &services.LedgerResult{Duplicate: false, CreditsAdded: credits, Credits: f.balance}, nil
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, *dto.RevenueCatEvent, []byte, string, bool) {}

type auditRecord struct {
	outcome       string
	priceMismatch bool
}

// recordingAuditor captures what the handler hands to the audit trail.
type recordingAuditor struct {
	records []auditRecord
}

func (a *recordingAuditor) Record(_ context.Context, _ *dto.RevenueCatEvent, _ []byte, outcome string, priceMismatch bool) {
	a.records = append(a.records, auditRecord{outcome: outcome, priceMismatch: priceMismatch})
}

// failingAuditor emulates an auditor whose persistence failed: the write
// is dropped and nothing propagates, matching WebhookAuditor's contract.
type failingAuditor struct {
	calls int
}

func (a *failingAuditor) Record(context.Context, *dto.RevenueCatEvent, []byte, string, bool) {
	a.calls++
}

func newWebhookApp(secret string, ledger services.CreditLedger) *fiber.App {
	return newWebhookAppWithAuditor(secret, ledger, nopAuditor{})
}

// newWebhookAppWithAuditor mirrors the production route wiring: the
// webhook group with its own permissive headers ahead of the cors
// middleware on the API group.
func newWebhookAppWithAuditor(secret string, ledger services.CreditLedger, auditor services.DeliveryAuditor) *fiber.App {
	app := fiber.New()
	h := NewWebhookHandler(
		services.NewSignatureVerifier(secret),
		services.DefaultCatalog(),
		ledger,
		auditor,
	)

	webhooks := app.Group("/api/webhooks")
	webhooks.Use(func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-RevenueCat-Signature")
		return c.Next()
	})
	webhooks.Options("/revenuecat", h.Preflight)
	webhooks.Post("/revenuecat", h.HandleRevenueCat)

	api := app.Group("/api")
	api.Use(middleware.CORS(&config.Config{CORSOrigins: "*"}))

	return app
}

func purchasePayload(eventType, userID, productID, transactionID string, price float64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":{"type":%q,"app_user_id":%q,"product_id":%q,"transaction_id":%q,"price_in_purchased_currency":%v,"currency":"USD"}}`,
		eventType, userID, productID, transactionID, price,
	))
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/revenuecat", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(services.SignatureHeader, signature)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func TestWebhook_RejectsMissingSignature(t *testing.T) {
	ledger := newFakeLedger()
	app := newWebhookApp("secret", ledger)

	status, body := postWebhook(t, app,
		purchasePayload("INITIAL_PURCHASE", "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7", "pink_flag_10_searches", "tx_001", 4.99), "")

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized - missing signature", body["error"])
	assert.Zero(t, ledger.calls)
}

func TestWebhook_RejectsInvalidSignature(t *testing.T) {
	ledger := newFakeLedger()
	app := newWebhookApp("secret", ledger)
	payload := purchasePayload("INITIAL_PURCHASE", "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7", "pink_flag_10_searches", "tx_001", 4.99)

	status, body := postWebhook(t, app, payload, signBody("not-the-secret", payload))

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized - invalid signature", body["error"])
	assert.Zero(t, ledger.calls)
}

func TestWebhook_NoSecretBypassesVerification(t *testing.T) {
	ledger := newFakeLedger()
	app := newWebhookApp("", ledger)
	payload := purchasePayload("INITIAL_PURCHASE", "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7", "pink_flag_10_searches", "tx_001", 4.99)

	status, body := postWebhook(t, app, payload, "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1, ledger.calls)
}

func TestWebhook_MalformedPayload(t *testing.T) {
	ledger := newFakeLedger()
	app := newWebhookApp("", ledger)

	status, body := postWebhook(t, app, []byte(`{"event": not json`), "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid webhook payload", body["error"])
	assert.Zero(t, ledger.calls)
}

func TestWebhook_NonPurchaseEventAcknowledged(t *testing.T) {
	ledger := newFakeLedger()
	app := newWebhookApp("", ledger)
	payload := purchasePayload("CANCELLATION", "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7", "pink_flag_10_searches", "tx_002", 0)

	status, body := postWebhook(t, app, payload, "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, "Non-purchase event ignored", body["message"])
	assert.Zero(t, ledger.calls)
}

func TestWebhook_UnknownProduct(t *testing.T) {
	ledger := newFakeLedger()
	app := newWebhookApp("", ledger)
	payload := purchasePayload("INITIAL_PURCHASE", "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7", "nonexistent_sku", "tx_003", 0.99)

	status, body := postWebhook(t, app, payload, "")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unknown product ID", body["error"])
	assert.Zero(t, ledger.calls)
}

func TestWebhook_IdempotentReplay(t *testing.T) {
	ledger := newFakeLedger()
	app := newWebhookApp("secret", ledger)
	payload := purchasePayload("INITIAL_PURCHASE", "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7", "pink_flag_10_searches", "tx_001", 4.99)
	sig := signBody("secret", payload)

	status, body := postWebhook(t, app, payload, sig)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(100), body["credits_added"])
	assert.Equal(t, float64(100), body["new_credits"])
	assert.Equal(t, "tx_001", body["transaction_id"])

	// Identical redelivery: acknowledged, balance unchanged, one net credit.
	status, body = postWebhook(t, app, payload, sig)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, float64(100), body["credits"])
	assert.Equal(t, 100, ledger.balance)
	assert.Equal(t, 2, ledger.calls)
}

func TestWebhook_LedgerUnavailable(t *testing.T) {
	ledger := newFakeLedger()
	ledger.err = errors.New("connection refused")
	app := newWebhookApp("", ledger)
	payload := purchasePayload("RENEWAL", "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7", "pink_flag_3_searches", "tx_004", 1.99)

	status, body := postWebhook(t, app, payload, "")

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to add credits", body["error"])
	assert.Equal(t, 1, ledger.calls)
}

func TestWebhook_Preflight(t *testing.T) {
	app := newWebhookApp("secret", newFakeLedger())

	// A real browser preflight: OPTIONS with Origin and the requested
	// method. Must be a 200 from the webhook route, not the cors
	// middleware's 204.
	req := httptest.NewRequest(http.MethodOptions, "/api/webhooks/revenuecat", nil)
	req.Header.Set("Origin", "https://app.pinkflag.example")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebhook_AuditsEveryOutcome(t *testing.T) {
	auditor := &recordingAuditor{}
	ledger := newFakeLedger()
	app := newWebhookAppWithAuditor("", ledger, auditor)
	const user = "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7"

	// Applied, price within tolerance.
	status, _ := postWebhook(t, app,
		purchasePayload("INITIAL_PURCHASE", user, "pink_flag_10_searches", "tx_001", 4.99), "")
	require.Equal(t, http.StatusOK, status)

	// Redelivery with an out-of-tolerance price: duplicate, flagged.
	status, _ = postWebhook(t, app,
		purchasePayload("INITIAL_PURCHASE", user, "pink_flag_10_searches", "tx_001", 0.99), "")
	require.Equal(t, http.StatusOK, status)

	// Non-purchase, unknown product, ledger failure.
	postWebhook(t, app, purchasePayload("CANCELLATION", user, "pink_flag_10_searches", "tx_002", 0), "")
	postWebhook(t, app, purchasePayload("INITIAL_PURCHASE", user, "nonexistent_sku", "tx_003", 0.99), "")
	ledger.err = errors.New("timeout")
	postWebhook(t, app, purchasePayload("RENEWAL", user, "pink_flag_3_searches", "tx_004", 1.99), "")

	require.Len(t, auditor.records, 5)
	assert.Equal(t, auditRecord{outcome: services.OutcomeApplied, priceMismatch: false}, auditor.records[0])
	assert.Equal(t, auditRecord{outcome: services.OutcomeDuplicate, priceMismatch: true}, auditor.records[1])
	assert.Equal(t, auditRecord{outcome: services.OutcomeIgnored, priceMismatch: false}, auditor.records[2])
	assert.Equal(t, auditRecord{outcome: services.OutcomeUnknownProduct, priceMismatch: false}, auditor.records[3])
	assert.Equal(t, auditRecord{outcome: services.OutcomeError, priceMismatch: false}, auditor.records[4])
}

func TestWebhook_AuditFailureDoesNotAffectResponse(t *testing.T) {
	auditor := &failingAuditor{}
	app := newWebhookAppWithAuditor("", newFakeLedger(), auditor)
	payload := purchasePayload("INITIAL_PURCHASE", "3b6f6e0e-9893-4b02-9cf3-70b5e7a2a4d7", "pink_flag_10_searches", "tx_001", 4.99)

	status, body := postWebhook(t, app, payload, "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(100), body["credits_added"])
	assert.Equal(t, 1, auditor.calls)
}
