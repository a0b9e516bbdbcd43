package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

// inMemoryStore serialises every unit of work behind one mutex and rolls back
// failed scopes by replaying an undo log.
type inMemoryStore struct {
	mu          sync.Mutex
	balances    map[string]money.Amount
	wagers      map[string]Wager
	order       []string
	withdrawals map[string]Withdrawal
	references  map[string]string
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests and local runs.
func NewInMemory() Store {
	return &inMemoryStore{
		balances:    make(map[string]money.Amount),
		wagers:      make(map[string]Wager),
		withdrawals: make(map[string]Withdrawal),
		references:  make(map[string]string),
	}
}

func (s *inMemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &inMemoryTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *inMemoryStore) Balance(_ context.Context, userID string) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *inMemoryStore) PendingWagers(_ context.Context, after *WagerCursor, limit int) ([]Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Wager, 0)
	for _, id := range s.order {
		if w := s.wagers[id]; w.Status == WagerPending && after.before(w) {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PlacedAt.Equal(out[j].PlacedAt) {
			return out[i].PlacedAt.Before(out[j].PlacedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *inMemoryStore) WagersByUser(_ context.Context, userID string) ([]Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Wager, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		if w := s.wagers[s.order[i]]; w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *inMemoryStore) WithdrawalsByUser(_ context.Context, userID string) ([]Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Withdrawal, 0)
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type inMemoryTx struct {
	s    *inMemoryStore
	undo []func()
}

func (t *inMemoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *inMemoryTx) Balance(_ context.Context, userID string) (money.Amount, error) {
	return t.s.balances[userID], nil
}

func (t *inMemoryTx) Adjust(_ context.Context, userID string, delta money.Amount) (money.Amount, error) {
	prev, existed := t.s.balances[userID]
	next := prev + delta
	if next < 0 {
		return prev, ErrInsufficientFunds
	}
	t.s.balances[userID] = next
	t.undo = append(t.undo, func() {
		if existed {
			t.s.balances[userID] = prev
		} else {
			delete(t.s.balances, userID)
		}
	})
	return next, nil
}

func (t *inMemoryTx) ClaimReference(_ context.Context, kind, reference, userID string) (bool, error) {
	key := kind + ":" + reference
	if _, exists := t.s.references[key]; exists {
		return false, nil
	}
	t.s.references[key] = userID
	t.undo = append(t.undo, func() { delete(t.s.references, key) })
	return true, nil
}

func (t *inMemoryTx) InsertWagers(_ context.Context, wagers []Wager) error {
	for _, w := range wagers {
		if _, exists := t.s.wagers[w.ID]; exists {
			return ErrDuplicateTransaction
		}
	}
	n := len(t.s.order)
	for _, w := range wagers {
		t.s.wagers[w.ID] = w
		t.s.order = append(t.s.order, w.ID)
	}
	t.undo = append(t.undo, func() {
		for _, w := range wagers {
			delete(t.s.wagers, w.ID)
		}
		t.s.order = t.s.order[:n]
	})
	return nil
}

func (t *inMemoryTx) SettleWager(_ context.Context, id string, status WagerStatus, at time.Time) (Wager, bool, error) {
	w, ok := t.s.wagers[id]
	if !ok {
		return Wager{}, false, ErrNotFound
	}
	if w.Status != WagerPending {
		return w, false, nil
	}
	prev := w
	settled := at
	w.Status = status
	w.SettledAt = &settled
	t.s.wagers[id] = w
	t.undo = append(t.undo, func() { t.s.wagers[id] = prev })
	return w, true, nil
}

func (t *inMemoryTx) InsertWithdrawal(_ context.Context, w Withdrawal) error {
	if _, exists := t.s.withdrawals[w.ID]; exists {
		return ErrDuplicateTransaction
	}
	t.s.withdrawals[w.ID] = w
	t.undo = append(t.undo, func() { delete(t.s.withdrawals, w.ID) })
	return nil
}

func (t *inMemoryTx) ResolveWithdrawal(_ context.Context, id string, status WithdrawalStatus, at time.Time) (Withdrawal, bool, error) {
	w, ok := t.s.withdrawals[id]
	if !ok {
		return Withdrawal{}, false, ErrNotFound
	}
	if w.Status != WithdrawalPending {
		return w, false, nil
	}
	prev := w
	processed := at
	w.Status = status
	w.ProcessedAt = &processed
	t.s.withdrawals[id] = w
	t.undo = append(t.undo, func() { t.s.withdrawals[id] = prev })
	return w, true, nil
}

type inMemoryJournal struct {
	mu      sync.RWMutex
	entries []Transaction
}

// NewInMemoryJournal returns a journal kept in process memory.
func NewInMemoryJournal() Journal {
	return &inMemoryJournal{}
}

func (j *inMemoryJournal) Append(_ context.Context, tx Transaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, tx)
	return nil
}

func (j *inMemoryJournal) ByUser(_ context.Context, userID string, limit int) ([]Transaction, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Transaction, 0)
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].UserID != userID {
			continue
		}
		out = append(out, j.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
