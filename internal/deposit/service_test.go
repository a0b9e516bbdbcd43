package deposit

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/logging"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

func newTestService() (*Service, ledger.Store, ledger.Journal) {
	store := ledger.NewInMemory()
	journal := ledger.NewInMemoryJournal()
	return NewService(store, journal, nil, nil, logging.Discard()), store, journal
}

func TestConfirmCreditsOnce(t *testing.T) {
	svc, store, journal := newTestService()
	ctx := context.Background()
	p := Payment{UserID: "u1", Amount: money.MustParse("25"), ExternalPaymentID: "cs_test_1"}

	balance, err := svc.Confirm(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("25"), balance)

	balance, err = svc.Confirm(ctx, p)
	require.ErrorIs(t, err, ErrDuplicate)
	require.ErrorIs(t, err, ledger.ErrDuplicateTransaction)
	assert.Equal(t, money.MustParse("25"), balance)

	got, _ := store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("25"), got)

	txs, _ := journal.ByUser(ctx, "u1", 10)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TxDeposit, txs[0].Type)
	assert.Equal(t, "cs_test_1", txs[0].Reference)
}

func TestConfirmConcurrentRedeliveries(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	p := Payment{UserID: "u1", Amount: money.MustParse("10"), ExternalPaymentID: "cs_dup"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	credited := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Confirm(ctx, p); err == nil {
				mu.Lock()
				credited++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, credited)
	got, _ := store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("10"), got)
}

func TestConfirmRejectsInvalidPayments(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Confirm(ctx, Payment{UserID: "u1", Amount: 0, ExternalPaymentID: "x"})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Confirm(ctx, Payment{UserID: " ", Amount: 100, ExternalPaymentID: "x"})
	assert.ErrorIs(t, err, ErrInvalidPayment)

	_, err = svc.Confirm(ctx, Payment{UserID: "u1", Amount: 100})
	assert.ErrorIs(t, err, ErrInvalidPayment)
}
