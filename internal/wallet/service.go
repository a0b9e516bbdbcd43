package wallet

import (
	"context"
	"time"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

const (
	defaultHistory = 50
	maxHistory     = 200
)

// Service exposes read-only wallet views backed by the ledger.
type Service struct {
	store   ledger.Store
	journal ledger.Journal
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store, journal ledger.Journal) *Service {
	return &Service{store: store, journal: journal}
}

// Balance is a point-in-time wallet reading.
type Balance struct {
	UserID string
	Amount money.Amount
	AsOf   time.Time
}

// Balance returns the user's spendable balance. A user without a wallet reads as zero.
func (s *Service) Balance(ctx context.Context, userID string) (Balance, error) {
	amount, err := s.store.Balance(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{UserID: userID, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Transactions returns the newest journal entries for the user.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]ledger.Transaction, error) {
	switch {
	case limit <= 0:
		limit = defaultHistory
	case limit > maxHistory:
		limit = maxHistory
	}
	return s.journal.ByUser(ctx, userID, limit)
}
