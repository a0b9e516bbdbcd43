package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

const (
	KindWagerPlaced         = "wager_placed"
	KindWagerWon            = "wager_won"
	KindDepositConfirmed    = "deposit_confirmed"
	KindWithdrawalRequested = "withdrawal_requested"
	KindWithdrawalResolved  = "withdrawal_resolved"
)

// Message describes a ledger event delivered after its transaction committed.
type Message struct {
	Kind      string       `json:"kind"`
	UserID    string       `json:"user_id"`
	Reference string       `json:"reference,omitempty"`
	Amount    money.Amount `json:"amount"`
	Body      string       `json:"body,omitempty"`
	At        time.Time    `json:"at"`
}

// Notifier delivers notifications to downstream systems. Delivery is best
// effort: callers log failures and never undo committed work because of them.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"user_id", message.UserID,
		"reference", message.Reference,
		"amount", message.Amount.String(),
		"body", message.Body,
	)
	return nil
}

// Dispatch sends message and logs a failure instead of returning it.
func Dispatch(ctx context.Context, n Notifier, log *slog.Logger, message Message) {
	if n == nil {
		return
	}
	if message.At.IsZero() {
		message.At = time.Now().UTC()
	}
	if err := n.Send(ctx, message); err != nil {
		log.Warn("notification failed", "kind", message.Kind, "user_id", message.UserID, "error", err)
	}
}
