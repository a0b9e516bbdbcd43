package ledger

import (
	"context"

	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

// SeedBalance is a test helper that sets a wallet balance when using the in-memory store.
func SeedBalance(s Store, userID string, amount money.Amount) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[userID] = amount
	}
}

// SeedWagers inserts wagers directly, bypassing placement validation.
func SeedWagers(s Store, wagers ...Wager) error {
	return s.WithinTx(context.Background(), func(tx Tx) error {
		return tx.InsertWagers(context.Background(), wagers)
	})
}

// GetWager reads a single wager from the in-memory store.
func GetWager(s Store, id string) (Wager, bool) {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return Wager{}, false
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	w, ok := mem.wagers[id]
	return w, ok
}
