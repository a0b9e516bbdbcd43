// Package withdrawal reserves funds for payout requests and lets an operator
// settle them as paid or rejected.
package withdrawal

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

// DefaultMethod is used when the client does not name a payout method.
const DefaultMethod = "manual"

var (
	// ErrInvalidStatus is returned when a resolution is neither paid nor rejected.
	ErrInvalidStatus = errors.New("resolution must be paid or rejected")

	// ErrAlreadyResolved is returned when the withdrawal left pending earlier.
	ErrAlreadyResolved = errors.New("withdrawal already resolved")
)

// Service handles payout requests.
type Service struct {
	store    ledger.Store
	journal  ledger.Journal
	notifier notification.Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// NewService builds a withdrawal service. notifier and m may be nil.
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

// RequestInput is a payout request for the authenticated user.
type RequestInput struct {
	UserID string
	Amount money.Amount
	Method string
}

// Request debits the amount and records a pending withdrawal in one atomic scope.
func (s *Service) Request(ctx context.Context, in RequestInput) (ledger.Withdrawal, money.Amount, error) {
	if !in.Amount.Positive() {
		return ledger.Withdrawal{}, 0, ledger.ErrInvalidAmount
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = DefaultMethod
	}

	w := ledger.Withdrawal{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Amount:    in.Amount,
		Method:    method,
		Status:    ledger.WithdrawalPending,
		CreatedAt: s.now(),
	}

	var balance money.Amount
	err := s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		if balance, err = tx.Adjust(ctx, in.UserID, -in.Amount); err != nil {
			return err
		}
		return tx.InsertWithdrawal(ctx, w)
	})
	if err != nil {
		return ledger.Withdrawal{}, 0, err
	}

	s.record(ctx, ledger.Transaction{
		ID:        uuid.NewString(),
		UserID:    w.UserID,
		Type:      ledger.TxWithdrawRequest,
		Amount:    w.Amount,
		Status:    ledger.TxStatusPending,
		Reference: w.ID,
		CreatedAt: w.CreatedAt,
	})
	notification.Dispatch(ctx, s.notifier, s.log, notification.Message{
		Kind:      notification.KindWithdrawalRequested,
		UserID:    w.UserID,
		Reference: w.ID,
		Amount:    w.Amount,
		Body:      fmt.Sprintf("withdrawal of %s via %s requested", w.Amount, w.Method),
	})
	s.log.Info("withdrawal requested", "withdrawal_id", w.ID, "user_id", w.UserID, "amount", w.Amount.String())

	return w, balance, nil
}

// Resolve moves a pending withdrawal to paid or rejected. A rejection returns the
// reserved funds to the wallet inside the same atomic scope.
func (s *Service) Resolve(ctx context.Context, id string, status ledger.WithdrawalStatus) (ledger.Withdrawal, error) {
	if status != ledger.WithdrawalPaid && status != ledger.WithdrawalRejected {
		return ledger.Withdrawal{}, ErrInvalidStatus
	}
	at := s.now()

	var resolved ledger.Withdrawal
	err := s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		w, ok, err := tx.ResolveWithdrawal(ctx, id, status, at)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}
		if status == ledger.WithdrawalRejected {
			if _, err := tx.Adjust(ctx, w.UserID, w.Amount); err != nil {
				return fmt.Errorf("refund withdrawal: %w", err)
			}
		}
		resolved = w
		return nil
	})
	if err != nil {
		return ledger.Withdrawal{}, err
	}

	if status == ledger.WithdrawalRejected {
		s.metrics.Credited("withdraw_refund", resolved.Amount.Cents())
		s.record(ctx, ledger.Transaction{
			ID:        uuid.NewString(),
			UserID:    resolved.UserID,
			Type:      ledger.TxWithdrawRefund,
			Amount:    resolved.Amount,
			Status:    ledger.TxStatusCompleted,
			Reference: resolved.ID,
			CreatedAt: at,
		})
	}
	notification.Dispatch(ctx, s.notifier, s.log, notification.Message{
		Kind:      notification.KindWithdrawalResolved,
		UserID:    resolved.UserID,
		Reference: resolved.ID,
		Amount:    resolved.Amount,
		Body:      "withdrawal " + string(status),
		At:        at,
	})
	s.log.Info("withdrawal resolved", "withdrawal_id", resolved.ID, "status", status)

	return resolved, nil
}

// List returns the user's withdrawals, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]ledger.Withdrawal, error) {
	return s.store.WithdrawalsByUser(ctx, userID)
}

func (s *Service) record(ctx context.Context, tx ledger.Transaction) {
	if err := s.journal.Append(context.WithoutCancel(ctx), tx); err != nil {
		s.log.Error("journal append failed", "type", tx.Type, "user_id", tx.UserID, "error", err)
	}
}
