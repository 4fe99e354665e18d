package services

import (
	"context"
	"log/slog"

	"github.com/pinkflag/backend/internal/dto"
	"github.com/pinkflag/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Webhook outcomes recorded in the audit trail.
const (
	OutcomeIgnored        = "ignored"
	OutcomeUnknownProduct = "unknown_product"
	OutcomeApplied        = "applied"
	OutcomeDuplicate      = "duplicate"
	OutcomeError          = "error"
)

// DeliveryAuditor persists inbound webhook deliveries for later review.
type DeliveryAuditor interface {
	Record(ctx context.Context, event *dto.RevenueCatEvent, rawPayload []byte, outcome string, priceMismatch bool)
}

// WebhookAuditor is the PostgreSQL-backed DeliveryAuditor. Writes are
// best-effort: a failed audit insert is logged, never surfaced.
type WebhookAuditor struct {
	db *gorm.DB
}

func NewWebhookAuditor(db *gorm.DB) *WebhookAuditor {
	return &WebhookAuditor{db: db}
}

func (a *WebhookAuditor) Record(ctx context.Context, event *dto.RevenueCatEvent, rawPayload []byte, outcome string, priceMismatch bool) {
	entry := models.WebhookEvent{
		EventType:     event.Type,
		AppUserID:     event.AppUserID,
		ProductID:     event.ProductID,
		TransactionID: event.TransactionID,
		Outcome:       outcome,
		PriceMismatch: priceMismatch,
		Payload:       datatypes.JSON(rawPayload),
	}
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		slog.Error("failed to record webhook event", "transaction_id", event.TransactionID, "error", err)
	}
}
