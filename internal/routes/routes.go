package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/muhvmmv/Tyche-Betting/internal/config"
	"github.com/muhvmmv/Tyche-Betting/internal/deposit"
	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/metrics"
	"github.com/muhvmmv/Tyche-Betting/internal/middleware"
	"github.com/muhvmmv/Tyche-Betting/internal/notification"
	"github.com/muhvmmv/Tyche-Betting/internal/validation"
	"github.com/muhvmmv/Tyche-Betting/internal/wager"
	"github.com/muhvmmv/Tyche-Betting/internal/wallet"
	"github.com/muhvmmv/Tyche-Betting/internal/withdrawal"
)

// Deps aggregates shared dependencies required to wire routes. Store and
// Journal default to the backends for DB; Notifier defaults to the logger.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Store    ledger.Store
	Journal  ledger.Journal
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Store == nil || d.Journal == nil {
		d.Store, d.Journal = ledger.Open(d.DB)
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerNotifier(d.Logger)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	validate := validation.New()
	wagerHandler := wager.NewHandler(wager.NewService(d.Store, d.Journal, d.Notifier, d.Metrics, d.Logger), validate)
	withdrawalHandler := withdrawal.NewHandler(withdrawal.NewService(d.Store, d.Journal, d.Notifier, d.Metrics, d.Logger), validate)
	depositHandler := deposit.NewHandler(deposit.NewService(d.Store, d.Journal, d.Notifier, d.Metrics, d.Logger), validate)
	walletHandler := wallet.NewHandler(wallet.NewService(d.Store, d.Journal))

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Operator and payment gateway routes. Registered ahead of the JWT group,
	// whose middleware covers every later route under /api/v1.
	admin := api.Group("/admin", middleware.AdminAuth(d.Cfg.AdminTokenHash))
	RegisterAdminRoutes(admin, withdrawalHandler)
	api.Post("/deposits/confirm", middleware.AdminAuth(d.Cfg.AdminTokenHash), depositHandler.Confirm)

	// Protected routes; idempotency keys are scoped to the authenticated user.
	protected := api.Group("", middleware.JWTAuth([]byte(d.Cfg.JWTSecret)))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterWagerRoutes(protected, wagerHandler, middleware.PlacementRateLimit(d.Cache, d.Cfg.PlacementPerMinute, d.Logger))
	RegisterWithdrawalRoutes(protected, withdrawalHandler)
	RegisterWalletRoutes(protected, walletHandler)

	return nil
}
