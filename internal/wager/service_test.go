package wager

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
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

func bet(id, selection, odds, stake string) BetInput {
	return BetInput{
		ID:        id,
		League:    "Premier League",
		HomeTeam:  "Chelsea",
		AwayTeam:  "Arsenal",
		Selection: selection,
		Odds:      decimal.RequireFromString(odds),
		Stake:     money.MustParse(stake),
	}
}

func TestCanonicalMatchID(t *testing.T) {
	cases := map[string]string{
		"1379082-Chelsea": "1379082",
		"1379082":         "1379082",
		"1379082-Man-Utd": "1379082",
		" 1379082-Draw ":  "1379082",
		"-Chelsea":        "",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalMatchID(in), in)
	}
}

func TestValidMatchID(t *testing.T) {
	assert.True(t, ValidMatchID("1379082"))
	assert.True(t, ValidMatchID("abc123"))
	assert.False(t, ValidMatchID(""))
	assert.False(t, ValidMatchID("12 34"))
	assert.False(t, ValidMatchID("12/34"))
}

func TestPlaceDebitsTotalStakeAndInsertsBatch(t *testing.T) {
	svc, store, journal := newTestService()
	ctx := context.Background()
	ledger.SeedBalance(store, "u1", money.MustParse("100"))

	res, err := svc.Place(ctx, "u1", []BetInput{
		bet("1379082-Chelsea", "Home", "2.5", "10"),
		bet("1379083", "Draw", "3.1", "5.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, money.MustParse("15.50"), res.TotalStake)
	assert.Equal(t, money.MustParse("84.50"), res.Balance)
	require.Len(t, res.Wagers, 2)
	assert.Equal(t, "1379082", res.Wagers[0].MatchID)
	assert.Equal(t, money.MustParse("25"), res.Wagers[0].PotentialWin)
	assert.Equal(t, money.MustParse("17.05"), res.Wagers[1].PotentialWin)
	assert.Equal(t, ledger.WagerPending, res.Wagers[1].Status)

	bal, _ := store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("84.50"), bal)

	txs, _ := journal.ByUser(ctx, "u1", 10)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TxWagerDebit, txs[0].Type)
	assert.Equal(t, money.MustParse("15.50"), txs[0].Amount)
	assert.Equal(t, ledger.TxStatusCompleted, txs[0].Status)
}

func TestPlaceInsufficientFundsLeavesNoTrace(t *testing.T) {
	svc, store, journal := newTestService()
	ctx := context.Background()
	ledger.SeedBalance(store, "u1", money.MustParse("20"))

	_, err := svc.Place(ctx, "u1", []BetInput{bet("1379082", "Home", "2.0", "50")})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	bal, _ := store.Balance(ctx, "u1")
	assert.Equal(t, money.MustParse("20"), bal)
	wagers, _ := store.WagersByUser(ctx, "u1")
	assert.Empty(t, wagers)
	txs, _ := journal.ByUser(ctx, "u1", 10)
	assert.Empty(t, txs)
}

func TestPlaceRejectsWholeBatchOnInvalidBet(t *testing.T) {
	cases := map[string]BetInput{
		"zero stake":      bet("1", "Home", "2.0", "0"),
		"negative stake":  bet("1", "Home", "2.0", "-1"),
		"odds of one":     bet("1", "Home", "1.0", "1"),
		"odds below one":  bet("1", "Home", "0.5", "1"),
		"malformed id":    bet("-Chelsea", "Home", "2.0", "1"),
		"empty selection": bet("1", "  ", "2.0", "1"),
		"absurd odds":     bet("1", "Home", "184467440737095521.16", "1"),
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			svc, store, _ := newTestService()
			ledger.SeedBalance(store, "u1", money.MustParse("100"))

			_, err := svc.Place(context.Background(), "u1", []BetInput{bet("1379082", "Home", "2.0", "5"), bad})
			require.ErrorIs(t, err, ErrInvalidWager)

			bal, _ := store.Balance(context.Background(), "u1")
			assert.Equal(t, money.MustParse("100"), bal)
			wagers, _ := store.WagersByUser(context.Background(), "u1")
			assert.Empty(t, wagers)
		})
	}
}

func TestPlaceRejectsEmptyAndOversizedSlips(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Place(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, ErrInvalidWager)

	many := make([]BetInput, MaxBatch+1)
	for i := range many {
		many[i] = bet("1", "Home", "2.0", "1")
	}
	_, err = svc.Place(context.Background(), "u1", many)
	assert.ErrorIs(t, err, ErrInvalidWager)
}

func TestStats(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	ledger.SeedBalance(store, "u1", money.MustParse("100"))

	res, err := svc.Place(ctx, "u1", []BetInput{
		bet("1", "Home", "2.0", "10"),
		bet("2", "Away", "3.0", "5"),
	})
	require.NoError(t, err)

	require.NoError(t, store.WithinTx(ctx, func(tx ledger.Tx) error {
		_, _, err := tx.SettleWager(ctx, res.Wagers[0].ID, ledger.WagerWon, res.Wagers[0].PlacedAt)
		return err
	}))

	st, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Active: 1, Won: 1, TotalWagered: money.MustParse("15"), TotalWon: money.MustParse("20")}, st)
}
