package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/pinkflag/backend/internal/dto"
	"github.com/pinkflag/backend/internal/services"
)

// priceTolerance bounds the expected-vs-reported price audit check.
// Mismatches are logged and flagged in the audit trail, never rejected.
const priceTolerance = 0.05

type WebhookHandler struct {
	verifier *services.SignatureVerifier
	catalog  *services.Catalog
	ledger   services.CreditLedger
	auditor  services.DeliveryAuditor
}

func NewWebhookHandler(verifier *services.SignatureVerifier, catalog *services.Catalog, ledger services.CreditLedger, auditor services.DeliveryAuditor) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		catalog:  catalog,
		ledger:   ledger,
		auditor:  auditor,
	}
}

// Preflight answers CORS preflight requests with a 200 and no body
// processing. The route is registered ahead of the cors middleware,
// which would answer 204. Permissive headers come from the webhook
// group middleware.
func (h *WebhookHandler) Preflight(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// HandleRevenueCat processes a purchase notification. The raw body is
// verified against the sender signature before any parsing; the ledger
// primitive is invoked at most once per request and the response branches
// strictly on its duplicate flag.
func (h *WebhookHandler) HandleRevenueCat(c *fiber.Ctx) error {
	rawBody := c.Body()

	if !h.verifier.Enabled() {
		slog.Warn("webhook signature verification disabled (no secret configured)")
	}
	if err := h.verifier.Verify(rawBody, c.Get(services.SignatureHeader)); err != nil {
		if errors.Is(err, services.ErrMissingSignature) {
			slog.Error("webhook rejected", "reason", "missing signature")
			return c.Status(fiber.StatusUnauthorized).JSON(dto.WebhookError{
				Error: "Unauthorized - missing signature",
			})
		}
		slog.Error("webhook rejected", "reason", "invalid signature")
		return c.Status(fiber.StatusUnauthorized).JSON(dto.WebhookError{
			Error: "Unauthorized - invalid signature",
		})
	}

	var webhook dto.RevenueCatWebhook
	if err := json.Unmarshal(rawBody, &webhook); err != nil {
		slog.Error("webhook payload unparseable", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.WebhookError{
			Error: "Invalid webhook payload",
		})
	}

	event := webhook.Event
	slog.Info("webhook received",
		"event_type", event.Type,
		"app_user_id", event.AppUserID,
		"product_id", event.ProductID,
	)

	if !services.IsPurchaseEvent(event.Type) {
		h.auditor.Record(c.Context(), &event, rawBody, services.OutcomeIgnored, false)
		return c.JSON(dto.WebhookIgnored{
			Received: true,
			Message:  "Non-purchase event ignored",
		})
	}

	product, ok := h.catalog.Lookup(event.ProductID)
	if !ok {
		slog.Error("unknown product id", "product_id", event.ProductID)
		h.auditor.Record(c.Context(), &event, rawBody, services.OutcomeUnknownProduct, false)
		return c.Status(fiber.StatusBadRequest).JSON(dto.WebhookError{
			Error: "Unknown product ID",
		})
	}

	priceMismatch := math.Abs(event.PriceInPurchasedCurrency-product.ExpectedPriceUSD) > product.ExpectedPriceUSD*priceTolerance
	if priceMismatch {
		slog.Warn("purchase price outside expected range",
			"product_id", event.ProductID,
			"expected", product.ExpectedPriceUSD,
			"reported", event.PriceInPurchasedCurrency,
			"currency", event.Currency,
		)
	}

	note := fmt.Sprintf("Purchase of %d credits via %s", product.Credits, product.ID)
	result, err := h.ledger.ApplyPurchaseCredit(c.Context(), event.AppUserID, product.Credits, event.TransactionID, note)
	if err != nil {
		slog.Error("failed to add credits",
			"app_user_id", event.AppUserID,
			"transaction_id", event.TransactionID,
			"error", err,
		)
		h.auditor.Record(c.Context(), &event, rawBody, services.OutcomeError, priceMismatch)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.WebhookFailure{
			Success: false,
			Error:   "Failed to add credits",
		})
	}

	if result.Duplicate {
		slog.Info("duplicate transaction ignored",
			"transaction_id", event.TransactionID,
			"credits", result.Credits,
		)
		h.auditor.Record(c.Context(), &event, rawBody, services.OutcomeDuplicate, priceMismatch)
		return c.JSON(dto.PurchaseDuplicate{
			Success:       true,
			Message:       "Duplicate transaction - already processed",
			UserID:        event.AppUserID,
			TransactionID: event.TransactionID,
			Duplicate:     true,
			Credits:       result.Credits,
		})
	}

	slog.Info("credits added",
		"app_user_id", event.AppUserID,
		"credits_added", result.CreditsAdded,
		"new_balance", result.Credits,
	)
	h.auditor.Record(c.Context(), &event, rawBody, services.OutcomeApplied, priceMismatch)
	return c.JSON(dto.PurchaseProcessed{
		Success:       true,
		Message:       "Purchase processed successfully",
		UserID:        event.AppUserID,
		ProductID:     event.ProductID,
		CreditsAdded:  result.CreditsAdded,
		NewCredits:    result.Credits,
		TransactionID: event.TransactionID,
	})
}
