package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the account profile. Credits is only ever mutated by the
// SQL credit functions, never by application code.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	AuthProvider string    `gorm:"size:50;default:'email'" json:"-"`
	Credits      int       `gorm:"not null;default:0" json:"credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
