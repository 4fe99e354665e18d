package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pinkflag/backend/internal/models"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// LedgerResult mirrors the jsonb returned by add_credits_from_purchase.
// Duplicate and CreditsAdded/Credits reflect the single authoritative
// post-state; application code never derives balances itself.
type LedgerResult struct {
	Duplicate    bool `json:"duplicate"`
	CreditsAdded int  `json:"credits_added"`
	Credits      int  `json:"credits"`
}

// CreditLedger is the atomic crediting primitive consumed by the webhook
// pipeline. Given the same transaction id twice, concurrently or
// sequentially, credits are applied at most once and both calls observe
// the committed post-state.
type CreditLedger interface {
	ApplyPurchaseCredit(ctx context.Context, userID string, credits int, transactionID, note string) (*LedgerResult, error)
}

// DeductResult mirrors the jsonb returned by deduct_credit_for_search.
type DeductResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	SearchID string `json:"search_id"`
	Credits  int    `json:"credits"`
}

// CreditStore is the credit surface used by user-facing handlers.
type CreditStore interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	DeductForSearch(ctx context.Context, userID uuid.UUID, searchType, query string, cost int) (*DeductResult, error)
}

// CreditService executes all credit mutations through the stored SQL
// functions so every operation is atomic on the database side.
type CreditService struct {
	db *gorm.DB
}

func NewCreditService(db *gorm.DB) *CreditService {
	return &CreditService{db: db}
}

func (s *CreditService) ApplyPurchaseCredit(ctx context.Context, userID string, credits int, transactionID, note string) (*LedgerResult, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid app_user_id %q: %w", userID, err)
	}

	var result LedgerResult
	if err := s.callJSONFunction(ctx, &result,
		"SELECT add_credits_from_purchase(?, ?, ?, ?)::text AS result",
		uid, credits, transactionID, note,
	); err != nil {
		return nil, fmt.Errorf("add_credits_from_purchase failed: %w", err)
	}
	return &result, nil
}

func (s *CreditService) DeductForSearch(ctx context.Context, userID uuid.UUID, searchType, query string, cost int) (*DeductResult, error) {
	var result DeductResult
	if err := s.callJSONFunction(ctx, &result,
		"SELECT deduct_credit_for_search(?, ?, ?, ?)::text AS result",
		userID, searchType, query, cost,
	); err != nil {
		return nil, fmt.Errorf("deduct_credit_for_search failed: %w", err)
	}
	return &result, nil
}

func (s *CreditService) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("credits").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to fetch credits: %w", err)
	}
	return user.Credits, nil
}

// callJSONFunction invokes a stored function returning jsonb and decodes
// the payload into out.
func (s *CreditService) callJSONFunction(ctx context.Context, out interface{}, query string, args ...interface{}) error {
	var raw string
	row := s.db.WithContext(ctx).Raw(query, args...).Row()
	if err := row.Scan(&raw); err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}
