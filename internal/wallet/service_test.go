package wallet

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

func TestServiceBalanceDefaultsToZero(t *testing.T) {
	svc := NewService(ledger.NewInMemory(), ledger.NewInMemoryJournal())

	bal, err := svc.Balance(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Amount != 0 {
		t.Fatalf("expected zero balance, got %s", bal.Amount)
	}
}

func TestServiceBalanceAndTransactions(t *testing.T) {
	store := ledger.NewInMemory()
	journal := ledger.NewInMemoryJournal()
	svc := NewService(store, journal)
	ctx := context.Background()

	ledger.SeedBalance(store, "u1", money.MustParse("25"))
	for i := 0; i < 3; i++ {
		_ = journal.Append(ctx, ledger.Transaction{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			Type:      ledger.TxDeposit,
			Amount:    money.MustParse("1"),
			Status:    ledger.TxStatusCompleted,
			CreatedAt: time.Now(),
		})
	}

	bal, err := svc.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Amount != money.MustParse("25") {
		t.Fatalf("expected balance 25.00, got %s", bal.Amount)
	}

	txs, err := svc.Transactions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 2 || txs[0].ID != "c" {
		t.Fatalf("expected newest two entries, got %+v", txs)
	}
}

func TestHandlerBalance(t *testing.T) {
	store := ledger.NewInMemory()
	ledger.SeedBalance(store, "u1", money.MustParse("12.34"))
	h := NewHandler(NewService(store, ledger.NewInMemoryJournal()))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "u1")
		return c.Next()
	})
	app.Get("/wallet", h.Balance)
	app.Get("/transactions", h.Transactions)

	resp, err := app.Test(httptest.NewRequest("GET", "/wallet", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Balance != 12.34 {
		t.Fatalf("expected 12.34, got %v", out.Balance)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/transactions?limit=5", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
