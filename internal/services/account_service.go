package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pinkflag/backend/internal/models"
	"gorm.io/gorm"
)

// Deletion steps, named as they appear in error responses.
const (
	StepSearchHistory      = "search history"
	StepCreditTransactions = "credit transactions"
	StepUserRecord         = "user record"
	StepAuthIdentity       = "authentication account"
)

// DeletionError reports which step of the cascade failed. Steps completed
// before the failure are not rolled back.
type DeletionError struct {
	Step string
	Err  error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("failed to delete %s: %v", e.Step, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

// UserDataStore removes records owned by a user.
type UserDataStore interface {
	DeleteSearches(ctx context.Context, userID uuid.UUID) error
	DeleteCreditTransactions(ctx context.Context, userID uuid.UUID) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// IdentityStore removes the authentication identity once the user's data
// and profile are gone.
type IdentityStore interface {
	DeleteIdentity(ctx context.Context, userID uuid.UUID) error
}

// AccountService runs the ordered account-deletion cascade: dependent rows
// first, then the user record, then the authentication identity. The first
// failure aborts the sequence with a step-tagged error; there is no
// compensating rollback since every step is irreversible cleanup.
type AccountService struct {
	data     UserDataStore
	identity IdentityStore
}

func NewAccountService(data UserDataStore, identity IdentityStore) *AccountService {
	return &AccountService{data: data, identity: identity}
}

func (s *AccountService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	steps := []struct {
		name string
		fn   func(context.Context, uuid.UUID) error
	}{
		{StepSearchHistory, s.data.DeleteSearches},
		{StepCreditTransactions, s.data.DeleteCreditTransactions},
		{StepUserRecord, s.data.DeleteUser},
		{StepAuthIdentity, s.identity.DeleteIdentity},
	}

	for _, step := range steps {
		if err := step.fn(ctx, userID); err != nil {
			return &DeletionError{Step: step.name, Err: err}
		}
		slog.Info("account deletion step completed", "step", step.name, "user_id", userID.String())
	}
	return nil
}

// GormUserDataStore is the PostgreSQL-backed UserDataStore.
type GormUserDataStore struct {
	db *gorm.DB
}

func NewGormUserDataStore(db *gorm.DB) *GormUserDataStore {
	return &GormUserDataStore{db: db}
}

func (s *GormUserDataStore) DeleteSearches(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Search{}).Error
}

func (s *GormUserDataStore) DeleteCreditTransactions(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CreditTransaction{}).Error
}

func (s *GormUserDataStore) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", userID).Error
}
