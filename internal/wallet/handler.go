package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/muhvmmv/Tyche-Betting/internal/middleware"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transactionResponse struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Amount    money.Amount `json:"amount"`
	Status    string       `json:"status"`
	Reference string       `json:"reference,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Balance returns the caller's wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	bal, err := h.service.Balance(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":   true,
		"user_id":   bal.UserID,
		"balance":   bal.Amount,
		"timestamp": bal.AsOf,
	})
}

// Transactions lists the caller's journal, newest first. ?limit= caps the page.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	txs, err := h.service.Transactions(c.UserContext(), middleware.UserID(c), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:        tx.ID,
			Type:      string(tx.Type),
			Amount:    tx.Amount,
			Status:    tx.Status,
			Reference: tx.Reference,
			CreatedAt: tx.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"success": true, "transactions": out})
}
