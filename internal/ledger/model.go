package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

// WagerStatus is the lifecycle state of a wager. Only pending wagers may change.
type WagerStatus string

const (
	WagerPending WagerStatus = "pending"
	WagerWon     WagerStatus = "won"
	WagerLost    WagerStatus = "lost"
)

// Terminal reports whether the status can no longer change.
func (s WagerStatus) Terminal() bool {
	return s == WagerWon || s == WagerLost
}

// Wager is a single placed bet on one match selection.
type Wager struct {
	ID           string
	UserID       string
	MatchID      string
	League       string
	HomeTeam     string
	AwayTeam     string
	Selection    string
	Odds         decimal.Decimal
	Stake        money.Amount
	PotentialWin money.Amount
	Status       WagerStatus
	PlacedAt     time.Time
	SettledAt    *time.Time
}

// WithdrawalStatus is the lifecycle state of a payout request.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalPaid     WithdrawalStatus = "paid"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Withdrawal is a payout request whose funds are already reserved from the wallet.
type Withdrawal struct {
	ID          string
	UserID      string
	Amount      money.Amount
	Method      string
	Status      WithdrawalStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// TransactionType classifies a balance-affecting event in the journal.
type TransactionType string

const (
	TxDeposit         TransactionType = "deposit"
	TxWagerDebit      TransactionType = "wager_debit"
	TxWinCredit       TransactionType = "win_credit"
	TxWithdrawRequest TransactionType = "withdraw_request"
	TxWithdrawRefund  TransactionType = "withdraw_refund"
)

const (
	// TxStatusCompleted marks events whose money movement is final.
	TxStatusCompleted = "completed"
	// TxStatusPending marks withdrawal requests awaiting payout.
	TxStatusPending = "pending"
)

// Transaction is an append-only audit record of a balance change.
type Transaction struct {
	ID        string
	UserID    string
	Type      TransactionType
	Amount    money.Amount
	Status    string
	Reference string
	CreatedAt time.Time
}
