// Package settlement resolves pending wagers against the match feed. Each pass
// is idempotent: a wager moves out of pending at most once, guarded by a
// compare-and-swap in the store, so overlapping or repeated passes are safe.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/muhvmmv/Tyche-Betting/internal/feed"
	"github.com/muhvmmv/Tyche-Betting/internal/ledger"
	"github.com/muhvmmv/Tyche-Betting/internal/metrics"
	"github.com/muhvmmv/Tyche-Betting/internal/money"
	"github.com/muhvmmv/Tyche-Betting/internal/notification"
	"github.com/muhvmmv/Tyche-Betting/internal/wager"
)

// Report summarises one settlement pass.
type Report struct {
	Scanned  int
	Fixtures int
	Won      int
	Lost     int
	Skipped  int
	Failed   int
	Credited money.Amount
	Duration time.Duration
}

// Options tune a Service. Zero values fall back to defaults.
type Options struct {
	Workers int
	// BatchSize is the page size used to read the pending set; a pass reads every page.
	BatchSize int
}

type Service struct {
	store    ledger.Store
	journal  ledger.Journal
	feed     feed.Feed
	notifier notification.Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	opts     Options
	now      func() time.Time
}

func NewService(store ledger.Store, journal ledger.Journal, f feed.Feed, notifier notification.Notifier, m *metrics.Metrics, log *slog.Logger, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	return &Service{
		store:    store,
		journal:  journal,
		feed:     f,
		notifier: notifier,
		metrics:  m,
		log:      log,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one pass over pending wagers. Wagers on the same fixture share
// one feed lookup; fixtures are processed concurrently up to Options.Workers.
// Only failing to read the pending set aborts the pass; per-wager failures are
// logged and counted.
func (s *Service) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	pending, err := s.loadPending(ctx)
	if err != nil {
		return Report{}, err
	}

	r := &tally{}
	r.Scanned = len(pending)

	groups := make(map[string][]ledger.Wager)
	for _, w := range pending {
		id := wager.CanonicalMatchID(w.MatchID)
		if !wager.ValidMatchID(id) {
			s.log.Error("pending wager has malformed match id", "wager_id", w.ID, "match_id", w.MatchID)
			s.metrics.SettlementFailed("match_id")
			r.add(func(rep *Report) { rep.Failed++ })
			continue
		}
		groups[id] = append(groups[id], w)
	}
	r.Fixtures = len(groups)

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for fixtureID, wagers := range groups {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.settleFixture(ctx, fixtureID, wagers, r)
			return nil
		})
	}
	_ = g.Wait()

	rep := r.snapshot()
	rep.Duration = time.Since(start)
	s.metrics.ObserveSettlementRun(rep.Duration)
	s.log.Info("settlement pass completed",
		"scanned", rep.Scanned,
		"fixtures", rep.Fixtures,
		"won", rep.Won,
		"lost", rep.Lost,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"credited", rep.Credited.String(),
		"duration", rep.Duration,
	)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

// loadPending reads the whole pending set page by page, so wagers on unfinished
// fixtures never hide newer ones behind a fixed batch.
func (s *Service) loadPending(ctx context.Context) ([]ledger.Wager, error) {
	var (
		all   []ledger.Wager
		after *ledger.WagerCursor
	)
	for {
		page, err := s.store.PendingWagers(ctx, after, s.opts.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("load pending wagers: %w", err)
		}
		all = append(all, page...)
		if len(page) < s.opts.BatchSize {
			return all, nil
		}
		after = ledger.CursorAfter(page[len(page)-1])
	}
}

func (s *Service) settleFixture(ctx context.Context, fixtureID string, wagers []ledger.Wager, r *tally) {
	fixture, err := s.feed.Fixture(ctx, fixtureID)
	switch {
	case errors.Is(err, feed.ErrFixtureNotFound):
		s.log.Debug("fixture not in feed yet", "fixture_id", fixtureID, "wagers", len(wagers))
		r.add(func(rep *Report) { rep.Skipped += len(wagers) })
		return
	case err != nil:
		s.log.Warn("fixture lookup failed", "fixture_id", fixtureID, "wagers", len(wagers), "error", err)
		s.metrics.SettlementFailed("feed")
		r.add(func(rep *Report) { rep.Failed += len(wagers) })
		return
	case !fixture.Finished():
		r.add(func(rep *Report) { rep.Skipped += len(wagers) })
		return
	}

	result := ResultOf(fixture)
	for _, w := range wagers {
		if ctx.Err() != nil {
			return
		}
		s.settleWager(ctx, w, fixture, result, r)
	}
}

func (s *Service) settleWager(ctx context.Context, w ledger.Wager, f feed.Fixture, result Result, r *tally) {
	pick := NormalizeSelection(w.Selection,
		Sides{Home: f.HomeTeam, Away: f.AwayTeam},
		Sides{Home: w.HomeTeam, Away: w.AwayTeam},
	)
	won := pick.Wins(result)
	status := ledger.WagerLost
	if won {
		status = ledger.WagerWon
	}
	settledAt := s.now()

	var transitioned bool
	err := s.store.WithinTx(ctx, func(tx ledger.Tx) error {
		transitioned = false
		_, ok, err := tx.SettleWager(ctx, w.ID, status, settledAt)
		if err != nil || !ok {
			return err
		}
		if won {
			if _, err := tx.Adjust(ctx, w.UserID, w.PotentialWin); err != nil {
				return fmt.Errorf("credit winnings: %w", err)
			}
		}
		transitioned = true
		return nil
	})
	if err != nil {
		s.log.Error("wager settlement failed", "wager_id", w.ID, "user_id", w.UserID, "error", err)
		s.metrics.SettlementFailed("store")
		r.add(func(rep *Report) { rep.Failed++ })
		return
	}
	if !transitioned {
		// another pass got there first
		r.add(func(rep *Report) { rep.Skipped++ })
		return
	}

	if !won {
		s.metrics.WagerSettled(string(ledger.WagerLost))
		r.add(func(rep *Report) { rep.Lost++ })
		return
	}

	s.metrics.WagerSettled(string(ledger.WagerWon))
	s.metrics.Credited("settlement", w.PotentialWin.Cents())
	r.add(func(rep *Report) {
		rep.Won++
		rep.Credited += w.PotentialWin
	})

	if err := s.journal.Append(context.WithoutCancel(ctx), ledger.Transaction{
		ID:        uuid.NewString(),
		UserID:    w.UserID,
		Type:      ledger.TxWinCredit,
		Amount:    w.PotentialWin,
		Status:    ledger.TxStatusCompleted,
		Reference: w.ID,
		CreatedAt: settledAt,
	}); err != nil {
		s.log.Error("journal append failed", "type", ledger.TxWinCredit, "wager_id", w.ID, "error", err)
	}
	notification.Dispatch(ctx, s.notifier, s.log, notification.Message{
		Kind:      notification.KindWagerWon,
		UserID:    w.UserID,
		Reference: w.ID,
		Amount:    w.PotentialWin,
		Body:      fmt.Sprintf("%s vs %s: %s won", f.HomeTeam, f.AwayTeam, w.Selection),
		At:        settledAt,
	})
}

type tally struct {
	mu sync.Mutex
	Report
}

func (t *tally) add(fn func(*Report)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.Report)
}

func (t *tally) snapshot() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Report
}
