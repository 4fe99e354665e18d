package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebhookEvent is the audit trail of inbound RevenueCat deliveries.
// Writes are best-effort and never fail the webhook pipeline.
type WebhookEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventType     string         `gorm:"size:50;index" json:"event_type"`
	AppUserID     string         `gorm:"size:255;index" json:"app_user_id"`
	ProductID     string         `gorm:"size:255" json:"product_id"`
	TransactionID string         `gorm:"size:255;index" json:"transaction_id"`
	Outcome       string         `gorm:"size:50;not null" json:"outcome"`
	PriceMismatch bool           `gorm:"default:false" json:"price_mismatch"`
	Payload       datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}
