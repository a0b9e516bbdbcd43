package deposit

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/validation"
)

// Handler is the gateway webhook for confirmed payments.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, validate: validate}
}

// Confirm credits a payment. Replays answer 200 with the current balance.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	var req Payment
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, validation.Message(err))
	}

	balance, err := h.service.Confirm(c.UserContext(), req)
	switch {
	case err == nil:
		return c.Status(http.StatusCreated).JSON(fiber.Map{"success": true, "duplicate": false, "balance": balance})
	case errors.Is(err, ErrDuplicate):
		return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "duplicate": true, "balance": balance})
	case errors.Is(err, ErrInvalidPayment), errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrConflict):
		return fiber.NewError(http.StatusConflict, "please retry")
	default:
		return err
	}
}
