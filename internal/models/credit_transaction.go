package models

import (
	"time"

	"github.com/google/uuid"
)

// CreditTransaction is the append-only credit ledger. The unique index on
// RevenueCatTransactionID is what makes purchase crediting idempotent:
// the add_credits_from_purchase SQL function no-ops on conflict. Search
// deductions leave it NULL, which the index permits any number of times.
type CreditTransaction struct {
	ID                      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID                  uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount                  int       `gorm:"not null" json:"amount"`
	Type                    string    `gorm:"size:50;not null" json:"type"`
	ProductID               string    `gorm:"size:255" json:"product_id,omitempty"`
	RevenueCatTransactionID *string   `gorm:"size:255;uniqueIndex" json:"revenuecat_transaction_id,omitempty"`
	Notes                   string    `gorm:"type:text" json:"notes"`
	CreatedAt               time.Time `json:"created_at"`
}
