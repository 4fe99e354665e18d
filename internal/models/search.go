package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Search is one entry of a user's search history. Rows are created by the
// deduct_credit_for_search SQL function together with the credit deduction.
type Search struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	SearchType   string         `gorm:"size:20;not null" json:"search_type"`
	Query        string         `gorm:"size:500" json:"query"`
	Cost         int            `gorm:"not null" json:"cost"`
	ResultsCount int            `gorm:"default:0" json:"results_count"`
	Metadata     datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}
