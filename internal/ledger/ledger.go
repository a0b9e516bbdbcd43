// Package ledger is the durable core of the betting service: wallet balances, wagers,
// withdrawals and the transaction journal. Every balance change happens inside
// Store.WithinTx so that a batch either commits as a whole or leaves no trace.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

var (
	// ErrInsufficientFunds occurs when a debit would take a wallet below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount occurs when an amount is zero or negative where a positive value is required.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrDuplicateTransaction indicates the external reference was already processed
	// and the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrNotFound is returned when a wager or withdrawal does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports write contention that persisted after the store retried.
	ErrConflict = errors.New("store conflict")
)

// Reference kinds claimed through Tx.ClaimReference.
const (
	RefDeposit = "deposit"
)

// Tx is the set of operations available inside one atomic scope.
type Tx interface {
	// Balance returns the wallet balance, zero for a user without a wallet.
	Balance(ctx context.Context, userID string) (money.Amount, error)

	// Adjust applies a signed delta to the user's wallet as a single read-modify-write
	// and returns the new balance. The wallet is created at zero on first use.
	// ErrInsufficientFunds is returned if the result would be negative.
	Adjust(ctx context.Context, userID string, delta money.Amount) (money.Amount, error)

	// ClaimReference records an external idempotency key. It returns false if the
	// key had already been claimed.
	ClaimReference(ctx context.Context, kind, reference, userID string) (bool, error)

	InsertWagers(ctx context.Context, wagers []Wager) error

	// SettleWager moves a pending wager to a terminal status. It returns the updated
	// wager and true, or false if the wager was no longer pending.
	SettleWager(ctx context.Context, id string, status WagerStatus, at time.Time) (Wager, bool, error)

	InsertWithdrawal(ctx context.Context, w Withdrawal) error

	// ResolveWithdrawal moves a pending withdrawal to paid or rejected, with the same
	// compare-and-swap semantics as SettleWager.
	ResolveWithdrawal(ctx context.Context, id string, status WithdrawalStatus, at time.Time) (Withdrawal, bool, error)
}

// WagerCursor is a keyset position in the pending scan.
type WagerCursor struct {
	PlacedAt time.Time
	ID       string
}

// CursorAfter returns the position just past w.
func CursorAfter(w Wager) *WagerCursor {
	return &WagerCursor{PlacedAt: w.PlacedAt, ID: w.ID}
}

func (c *WagerCursor) before(w Wager) bool {
	if c == nil {
		return true
	}
	if !w.PlacedAt.Equal(c.PlacedAt) {
		return w.PlacedAt.After(c.PlacedAt)
	}
	return w.ID > c.ID
}

// Store is the transactional entry point plus read-only queries.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Balance(ctx context.Context, userID string) (money.Amount, error)
	// PendingWagers pages through pending wagers in (PlacedAt, ID) order, starting
	// strictly after the cursor. A nil cursor starts from the oldest wager.
	PendingWagers(ctx context.Context, after *WagerCursor, limit int) ([]Wager, error)
	WagersByUser(ctx context.Context, userID string) ([]Wager, error)
	WithdrawalsByUser(ctx context.Context, userID string) ([]Withdrawal, error)
}

// Journal is the append-only transaction log. Appends are best effort: callers log
// failures and carry on, because balances and wager state are authoritative.
type Journal interface {
	Append(ctx context.Context, tx Transaction) error
	ByUser(ctx context.Context, userID string, limit int) ([]Transaction, error)
}
