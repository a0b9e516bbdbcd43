package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/muhvmmv/Tyche-Betting/internal/wager"
	"github.com/muhvmmv/Tyche-Betting/internal/wallet"
	"github.com/muhvmmv/Tyche-Betting/internal/withdrawal"
)

// RegisterWalletRoutes wires balance and journal endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Balance)
	r.Get("/transactions", h.Transactions)
}

// RegisterWagerRoutes wires wager placement and history. limiter guards placement only.
func RegisterWagerRoutes(r fiber.Router, h *wager.Handler, limiter fiber.Handler) {
	r.Post("/wagers", limiter, h.Place)
	r.Get("/wagers", h.List)
	r.Get("/wagers/stats", h.Stats)
}

// RegisterWithdrawalRoutes wires user payout requests.
func RegisterWithdrawalRoutes(r fiber.Router, h *withdrawal.Handler) {
	r.Post("/withdrawals", h.Request)
	r.Get("/withdrawals", h.List)
}

// RegisterAdminRoutes wires operator endpoints.
func RegisterAdminRoutes(r fiber.Router, h *withdrawal.Handler) {
	r.Post("/withdrawals/:id/resolve", h.Resolve)
}
