// Package deposit credits wallets from confirmed gateway payments. Confirmation is
// idempotent on the gateway's payment id, so webhook retries and redelivered
// Kafka messages credit a wallet once.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/metrics"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
	"github.com/muhvmmv/Tyche-Betting/internal/notification"
)

var (
	// ErrDuplicate reports a payment id that was already credited.
	ErrDuplicate = fmt.Errorf("payment already confirmed: %w", ledger.ErrDuplicateTransaction)

	// ErrInvalidPayment rejects events missing a user or payment id.
	ErrInvalidPayment = errors.New("invalid payment")
)

// Payment is a funded deposit reported by the gateway.
type Payment struct {
	UserID            string       `json:"user_id" validate:"required,max=128"`
	Amount            money.Amount `json:"amount"`
	ExternalPaymentID string       `json:"external_payment_id" validate:"required,max=128"`
}

// Service confirms deposits.
type Service struct {
	store    ledger.Store
	journal  ledger.Journal
	notifier notification.Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store ledger.Store, journal ledger.Journal, notifier notification.Notifier, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		journal:  journal,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Confirm credits the payment and returns the new balance. For a payment id seen
// before it returns ErrDuplicate together with the current balance.
func (s *Service) Confirm(ctx context.Context, p Payment) (money.Amount, error) {
	p.UserID = strings.TrimSpace(p.UserID)
	p.ExternalPaymentID = strings.TrimSpace(p.ExternalPaymentID)
	if p.UserID == "" || p.ExternalPaymentID == "" {
		return 0, ErrInvalidPayment
	}
	if !p.Amount.Positive() {
		return 0, ledger.ErrInvalidAmount
	}

	var (
		balance   money.Amount
		duplicate bool
	)
	err := s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		claimed, err := tx.ClaimReference(ctx, ledger.RefDeposit, p.ExternalPaymentID, p.UserID)
		if err != nil {
			return err
		}
		if !claimed {
			duplicate = true
			balance, err = tx.Balance(ctx, p.UserID)
			return err
		}
		duplicate = false
		balance, err = tx.Adjust(ctx, p.UserID, p.Amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	if duplicate {
		s.log.Info("deposit already confirmed", "payment_id", p.ExternalPaymentID, "user_id", p.UserID)
		return balance, ErrDuplicate
	}

	at := s.now()
	s.metrics.Credited("deposit", p.Amount.Cents())
	if err := s.journal.Append(context.WithoutCancel(ctx), ledger.Transaction{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		Type:      ledger.TxDeposit,
		Amount:    p.Amount,
		Status:    ledger.TxStatusCompleted,
		Reference: p.ExternalPaymentID,
		CreatedAt: at,
	}); err != nil {
		s.log.Error("journal append failed", "type", ledger.TxDeposit, "user_id", p.UserID, "error", err)
	}
	notification.Dispatch(ctx, s.notifier, s.log, notification.Message{
		Kind:      notification.KindDepositConfirmed,
		UserID:    p.UserID,
		Reference: p.ExternalPaymentID,
		Amount:    p.Amount,
		At:        at,
	})
	s.log.Info("deposit confirmed", "payment_id", p.ExternalPaymentID, "user_id", p.UserID, "amount", p.Amount.String())

	return balance, nil
}
