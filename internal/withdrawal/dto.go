package withdrawal

import (
	"time"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

type RequestBody struct {
	Amount money.Amount `json:"amount"`
	Method string       `json:"method" validate:"max=32"`
}

type ResolveBody struct {
	Status string `json:"status" validate:"required,oneof=paid rejected"`
}

type Response struct {
	ID          string       `json:"id"`
	Amount      money.Amount `json:"amount"`
	Method      string       `json:"method"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
}

func toResponse(w ledger.Withdrawal) Response {
	return Response{
		ID:          w.ID,
		Amount:      w.Amount,
		Method:      w.Method,
		Status:      string(w.Status),
		CreatedAt:   w.CreatedAt,
		ProcessedAt: w.ProcessedAt,
	}
}
