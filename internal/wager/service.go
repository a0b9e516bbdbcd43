// Package wager implements batch wager placement and the user's wager history.
package wager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/metrics"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
	"github.com/muhvmmv/Tyche-Betting/internal/notification"
)

// MaxBatch bounds the number of wagers in a single placement.
const MaxBatch = 20

// ErrInvalidWager rejects a whole batch before anything is written.
var ErrInvalidWager = errors.New("invalid wager")

var (
	minOdds = decimal.NewFromInt(1)
	maxOdds = decimal.NewFromInt(1000)
)

// Service places wagers against the ledger.
type Service struct {
	store    ledger.Store
	journal  ledger.Journal
	notifier notification.Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// NewService builds a placement service. notifier and m may be nil.
func NewService(store ledger.Store, journal ledger.Journal, notifier notification.Notifier, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		journal:  journal,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BetInput is one proposed wager as submitted by the client.
type BetInput struct {
	ID        string
	League    string
	HomeTeam  string
	AwayTeam  string
	Selection string
	Odds      decimal.Decimal
	Stake     money.Amount
}

// PlaceResult describes a committed batch.
type PlaceResult struct {
	Wagers     []ledger.Wager
	TotalStake money.Amount
	Balance    money.Amount
}

// Place validates the batch, then debits the total stake and inserts every wager
// in one atomic scope. Either all wagers exist and the wallet is debited, or
// nothing changed.
func (s *Service) Place(ctx context.Context, userID string, bets []BetInput) (PlaceResult, error) {
	wagers, total, err := s.build(userID, bets)
	if err != nil {
		s.metrics.PlacementRejected("invalid")
		return PlaceResult{}, err
	}

	var balance money.Amount
	err = s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		var err error
		if balance, err = tx.Adjust(ctx, userID, -total); err != nil {
			return err
		}
		return tx.InsertWagers(ctx, wagers)
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			s.metrics.PlacementRejected("insufficient_funds")
		} else {
			s.metrics.PlacementRejected("store")
		}
		return PlaceResult{}, err
	}

	s.metrics.WagersPlaced(len(wagers))
	batchRef := wagers[0].ID
	s.record(ctx, ledger.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      ledger.TxWagerDebit,
		Amount:    total,
		Status:    ledger.TxStatusCompleted,
		Reference: batchRef,
		CreatedAt: wagers[0].PlacedAt,
	})
	notification.Dispatch(ctx, s.notifier, s.log, notification.Message{
		Kind:      notification.KindWagerPlaced,
		UserID:    userID,
		Reference: batchRef,
		Amount:    total,
		Body:      fmt.Sprintf("%d wager(s) placed", len(wagers)),
	})
	s.log.Info("wagers placed", "user_id", userID, "count", len(wagers), "total_stake", total.String())

	return PlaceResult{Wagers: wagers, TotalStake: total, Balance: balance}, nil
}

func (s *Service) build(userID string, bets []BetInput) ([]ledger.Wager, money.Amount, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, 0, fmt.Errorf("%w: missing user", ErrInvalidWager)
	}
	if len(bets) == 0 {
		return nil, 0, fmt.Errorf("%w: no bets provided", ErrInvalidWager)
	}
	if len(bets) > MaxBatch {
		return nil, 0, fmt.Errorf("%w: at most %d bets per slip", ErrInvalidWager, MaxBatch)
	}

	placedAt := s.now()
	wagers := make([]ledger.Wager, 0, len(bets))
	var total money.Amount
	for i, b := range bets {
		matchID := CanonicalMatchID(b.ID)
		switch {
		case !ValidMatchID(matchID):
			return nil, 0, fmt.Errorf("%w: bet %d has malformed id %q", ErrInvalidWager, i, b.ID)
		case !b.Stake.Positive():
			return nil, 0, fmt.Errorf("%w: bet %d stake must be positive", ErrInvalidWager, i)
		case !b.Odds.GreaterThan(minOdds):
			return nil, 0, fmt.Errorf("%w: bet %d odds must be greater than 1.0", ErrInvalidWager, i)
		case b.Odds.GreaterThan(maxOdds):
			return nil, 0, fmt.Errorf("%w: bet %d odds must not exceed %s", ErrInvalidWager, i, maxOdds)
		case strings.TrimSpace(b.Selection) == "":
			return nil, 0, fmt.Errorf("%w: bet %d has no selection", ErrInvalidWager, i)
		}

		payout, err := money.ApplyOdds(b.Stake, b.Odds)
		if err != nil || total+b.Stake < total || payout < b.Stake {
			return nil, 0, fmt.Errorf("%w: bet %d amount out of range", ErrInvalidWager, i)
		}
		total += b.Stake

		wagers = append(wagers, ledger.Wager{
			ID:           uuid.NewString(),
			UserID:       userID,
			MatchID:      matchID,
			League:       strings.TrimSpace(b.League),
			HomeTeam:     strings.TrimSpace(b.HomeTeam),
			AwayTeam:     strings.TrimSpace(b.AwayTeam),
			Selection:    strings.TrimSpace(b.Selection),
			Odds:         b.Odds,
			Stake:        b.Stake,
			PotentialWin: payout,
			Status:       ledger.WagerPending,
			PlacedAt:     placedAt,
		})
	}
	return wagers, total, nil
}

func (s *Service) record(ctx context.Context, tx ledger.Transaction) {
	if err := s.journal.Append(context.WithoutCancel(ctx), tx); err != nil {
		s.log.Error("journal append failed", "type", tx.Type, "user_id", tx.UserID, "error", err)
	}
}

// List returns the user's wagers, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]ledger.Wager, error) {
	return s.store.WagersByUser(ctx, userID)
}

// Stats summarises a user's betting activity.
type Stats struct {
	Total        int
	Active       int
	Won          int
	Lost         int
	TotalWagered money.Amount
	TotalWon     money.Amount
}

func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	wagers, err := s.store.WagersByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, w := range wagers {
		st.Total++
		st.TotalWagered += w.Stake
		switch w.Status {
		case ledger.WagerPending:
			st.Active++
		case ledger.WagerWon:
			st.Won++
			st.TotalWon += w.PotentialWin
		case ledger.WagerLost:
			st.Lost++
		}
	}
	return st, nil
}
