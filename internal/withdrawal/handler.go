package withdrawal

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/middleware"
	"github.com/muhvmmv/Tyche-Betting/internal/validation"
)

// Handler exposes withdrawal endpoints for users and operators.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, validate: validate}
}

// Request reserves funds for a payout.
func (h *Handler) Request(c *fiber.Ctx) error {
	var req RequestBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, validation.Message(err))
	}

	w, balance, err := h.service.Request(c.UserContext(), RequestInput{
		UserID: middleware.UserID(c),
		Amount: req.Amount,
		Method: req.Method,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "Amount must be greater than zero")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "Insufficient balance")
		case errors.Is(err, ledger.ErrConflict):
			return fiber.NewError(http.StatusConflict, "please retry")
		default:
			return err
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"withdrawal": toResponse(w),
		"balance":    balance,
	})
}

// List returns the caller's withdrawals.
func (h *Handler) List(c *fiber.Ctx) error {
	ws, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	out := make([]Response, 0, len(ws))
	for _, w := range ws {
		out = append(out, toResponse(w))
	}
	return c.JSON(fiber.Map{"success": true, "withdrawals": out})
}

// Resolve is the operator endpoint that marks a withdrawal paid or rejected.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req ResolveBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, validation.Message(err))
	}

	w, err := h.service.Resolve(c.UserContext(), c.Params("id"), ledger.WithdrawalStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "withdrawal not found")
		case errors.Is(err, ErrAlreadyResolved):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidStatus):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return err
		}
	}
	return c.JSON(fiber.Map{"success": true, "withdrawal": toResponse(w)})
}
