package wager

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/middleware"
	"github.com/muhvmmv/Tyche-Betting/internal/validation"
)

// Handler exposes wager HTTP endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a wager handler.
func NewHandler(service *Service, validate *validator.Validate) *Handler {
	return &Handler{service: service, validate: validate}
}

// Place commits a betting slip for the authenticated user.
func (h *Handler) Place(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	var req PlaceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, validation.Message(err))
	}

	result, err := h.service.Place(c.UserContext(), userID, req.inputs())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidWager):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "Insufficient balance")
		case errors.Is(err, ledger.ErrConflict):
			return fiber.NewError(http.StatusConflict, "please retry")
		default:
			return err
		}
	}

	return c.Status(http.StatusCreated).JSON(PlaceResponse{
		Success:    true,
		Message:    "Bets placed successfully",
		TotalStake: result.TotalStake,
		Balance:    result.Balance,
		Wagers:     toResponses(result.Wagers),
	})
}

// List returns the user's wagers, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	wagers, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "wagers": toResponses(wagers)})
}

// Stats returns dashboard counters.
func (h *Handler) Stats(c *fiber.Ctx) error {
	st, err := h.service.Stats(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(StatsResponse{
		Success:      true,
		Total:        st.Total,
		Active:       st.Active,
		Won:          st.Won,
		Lost:         st.Lost,
		TotalWagered: st.TotalWagered,
		TotalWon:     st.TotalWon,
	})
}
