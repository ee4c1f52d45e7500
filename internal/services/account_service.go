package services

import (
	"context"
	"fmt"

	"esgrec/internal/core"
	"esgrec/internal/matrix"
)

// AccountStore is the persistence surface the account service needs. Both the
// SQLite repository and the memory store implement it.
type AccountStore interface {
	ListAccounts(ctx context.Context, companyID int64) ([]core.Account, error)
	GetAccount(ctx context.Context, companyID int64, id core.AccountID) (core.Account, error)
	CreateAccount(ctx context.Context, companyID int64, a core.Account) (core.Account, error)
	UpdateAccount(ctx context.Context, companyID int64, a core.Account) error
	DeactivateAccount(ctx context.Context, companyID int64, id core.AccountID) error
	ListRecordHistory(ctx context.Context, companyID int64, accountID core.AccountID, year int) ([]core.RecordHistoryEntry, error)
}

// AccountService manages the dimension list. Every mutation invalidates the
// cached account list so the next grid load sees it.
type AccountService struct {
	store AccountStore
	cache *matrix.CachedAccounts
}

func NewAccountService(store AccountStore, cache *matrix.CachedAccounts) *AccountService {
	return &AccountService{store: store, cache: cache}
}

func (s *AccountService) List(ctx context.Context, companyID int64) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, companyID)
}

func (s *AccountService) Get(ctx context.Context, companyID int64, id core.AccountID) (core.Account, error) {
	return s.store.GetAccount(ctx, companyID, id)
}

func (s *AccountService) Create(ctx context.Context, companyID int64, a core.Account) (core.Account, error) {
	created, err := s.store.CreateAccount(ctx, companyID, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.invalidate(companyID)
	return created, nil
}

func (s *AccountService) Update(ctx context.Context, companyID int64, a core.Account) error {
	if err := s.store.UpdateAccount(ctx, companyID, a); err != nil {
		return err
	}
	s.invalidate(companyID)
	return nil
}

// Deactivate removes an account from the dimension list. Its fact records
// stay in place and show up as orphan rows on the next load.
func (s *AccountService) Deactivate(ctx context.Context, companyID int64, id core.AccountID) error {
	if err := s.store.DeactivateAccount(ctx, companyID, id); err != nil {
		return err
	}
	s.invalidate(companyID)
	return nil
}

func (s *AccountService) History(ctx context.Context, companyID int64, accountID core.AccountID, year int) ([]core.RecordHistoryEntry, error) {
	return s.store.ListRecordHistory(ctx, companyID, accountID, year)
}

func (s *AccountService) invalidate(companyID int64) {
	if s.cache != nil {
		s.cache.Invalidate(companyID)
	}
}
