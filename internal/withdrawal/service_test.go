package withdrawal

import (
	"context"
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

func TestRequestReservesFunds(t *testing.T) {
	svc, store, journal := newTestService()
	ctx := context.Background()
	ledger.SeedBalance(store, "u1", money.MustParse("100"))

	w, balance, err := svc.Request(ctx, RequestInput{UserID: "u1", Amount: money.MustParse("40")})
	require.NoError(t, err)

	assert.Equal(t, ledger.WithdrawalPending, w.Status)
	assert.Equal(t, DefaultMethod, w.Method)
	assert.Equal(t, money.MustParse("60"), balance)

	ws, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, w.ID, ws[0].ID)

	txs, _ := journal.ByUser(ctx, "u1", 10)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TxWithdrawRequest, txs[0].Type)
	assert.Equal(t, ledger.TxStatusPending, txs[0].Status)
	assert.Equal(t, w.ID, txs[0].Reference)
}

func TestRequestMoreThanBalance(t *testing.T) {
	svc, store, journal := newTestService()
	ctx := context.Background()
	ledger.SeedBalance(store, "u1", money.MustParse("20"))

	_, _, err := svc.Request(ctx, RequestInput{UserID: "u1", Amount: money.MustParse("50"), Method: "bank"})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	ws, _ := svc.List(ctx, "u1")
	assert.Empty(t, ws)
	bal, _ := store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("20"), bal)
	txs, _ := journal.ByUser(ctx, "u1", 10)
	assert.Empty(t, txs)
}

func TestRequestRejectsNonPositiveAmount(t *testing.T) {
	svc, store, _ := newTestService()
	ledger.SeedBalance(store, "u1", money.MustParse("20"))

	for _, amount := range []money.Amount{0, -100} {
		_, _, err := svc.Request(context.Background(), RequestInput{UserID: "u1", Amount: amount})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	}
}

func TestResolveRejectedRefunds(t *testing.T) {
	svc, store, journal := newTestService()
	ctx := context.Background()
	ledger.SeedBalance(store, "u1", money.MustParse("100"))
	w, _, err := svc.Request(ctx, RequestInput{UserID: "u1", Amount: money.MustParse("30")})
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, w.ID, ledger.WithdrawalRejected)
	require.NoError(t, err)
	assert.Equal(t, ledger.WithdrawalRejected, resolved.Status)
	assert.NotNil(t, resolved.ProcessedAt)

	bal, _ := store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("100"), bal)

	txs, _ := journal.ByUser(ctx, "u1", 10)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.TxWithdrawRefund, txs[0].Type)
	assert.Equal(t, money.MustParse("30"), txs[0].Amount)

	_, err = svc.Resolve(ctx, w.ID, ledger.WithdrawalRejected)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	bal, _ = store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("100"), bal)
}

func TestResolvePaidKeepsDebit(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	ledger.SeedBalance(store, "u1", money.MustParse("100"))
	w, _, err := svc.Request(ctx, RequestInput{UserID: "u1", Amount: money.MustParse("30")})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, w.ID, ledger.WithdrawalPaid)
	require.NoError(t, err)
	bal, _ := store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("70"), bal)

	_, err = svc.Resolve(ctx, w.ID, ledger.WithdrawalRejected)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	bal, _ = store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("70"), bal)
}

func TestResolveValidation(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Resolve(context.Background(), "nope", ledger.WithdrawalPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.Resolve(context.Background(), "nope", ledger.WithdrawalPaid)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
