package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/muhvmmv/Tyche-Betting/internal/money"
)

const maxTxAttempts = 3

// PostgresStore persists wallets, wagers and withdrawals in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithinTx runs fn inside a database transaction. Serialization failures and
// deadlocks are retried; persistent contention surfaces as ErrConflict.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// Balance returns the wallet balance, zero when the wallet does not exist yet.
func (s *PostgresStore) Balance(ctx context.Context, userID string) (money.Amount, error) {
	return balanceOf(ctx, s.db, userID)
}

const wagerColumns = `id, user_id, match_id, league, home_team, away_team, selection, odds::text,
        stake, potential_win, status, placed_at, settled_at`

// PendingWagers returns the oldest pending wagers first, keyset-paged on (placed_at, id).
func (s *PostgresStore) PendingWagers(ctx context.Context, after *WagerCursor, limit int) ([]Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE status = 'pending'`
	args := []any{}
	if after != nil {
		query += ` AND (placed_at, id) > ($1, $2)`
		args = append(args, after.PlacedAt, after.ID)
	}
	query += ` ORDER BY placed_at, id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Wager, error) { return scanWager(row) })
}

// WagersByUser returns the user's wagers, newest first.
func (s *PostgresStore) WagersByUser(ctx context.Context, userID string) ([]Wager, error) {
	rows, err := s.db.Query(ctx, `SELECT `+wagerColumns+` FROM wagers WHERE user_id = $1 ORDER BY placed_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Wager, error) { return scanWager(row) })
}

const withdrawalColumns = `id, user_id, amount, method, status, created_at, processed_at`

func (s *PostgresStore) WithdrawalsByUser(ctx context.Context, userID string) ([]Withdrawal, error) {
	rows, err := s.db.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Withdrawal, error) { return scanWithdrawal(row) })
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func balanceOf(ctx context.Context, q querier, userID string) (money.Amount, error) {
	var balance int64
	err := q.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return money.Amount(balance), nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Balance(ctx context.Context, userID string) (money.Amount, error) {
	return balanceOf(ctx, t.tx, userID)
}

// Adjust is a single conditional UPDATE, so the non-negative check and the write
// happen under the same row lock.
func (t *pgTx) Adjust(ctx context.Context, userID string, delta money.Amount) (money.Amount, error) {
	if _, err := t.tx.Exec(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
        ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return 0, err
	}
	const query = `
        UPDATE wallets SET balance = balance + $2, updated_at = now()
        WHERE user_id = $1 AND balance + $2 >= 0
        RETURNING balance`
	var balance int64
	if err := t.tx.QueryRow(ctx, query, userID, int64(delta)).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}
	return money.Amount(balance), nil
}

func (t *pgTx) ClaimReference(ctx context.Context, kind, reference, userID string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `INSERT INTO processed_references (kind, reference, user_id) VALUES ($1, $2, $3)
        ON CONFLICT (kind, reference) DO NOTHING`, kind, reference, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) InsertWagers(ctx context.Context, wagers []Wager) error {
	const query = `
        INSERT INTO wagers (id, user_id, match_id, league, home_team, away_team, selection, odds,
            stake, potential_win, status, placed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12)`
	batch := &pgx.Batch{}
	for _, w := range wagers {
		batch.Queue(query, w.ID, w.UserID, w.MatchID, w.League, w.HomeTeam, w.AwayTeam, w.Selection,
			w.Odds.String(), int64(w.Stake), int64(w.PotentialWin), string(w.Status), w.PlacedAt)
	}
	br := t.tx.SendBatch(ctx, batch)
	for range wagers {
		if _, err := br.Exec(); err != nil {
			br.Close() // nolint:errcheck
			return fmt.Errorf("insert wager: %w", err)
		}
	}
	return br.Close()
}

func (t *pgTx) SettleWager(ctx context.Context, id string, status WagerStatus, at time.Time) (Wager, bool, error) {
	query := `UPDATE wagers SET status = $2, settled_at = $3
        WHERE id = $1 AND status = 'pending'
        RETURNING ` + wagerColumns
	w, err := scanWager(t.tx.QueryRow(ctx, query, id, string(status), at))
	if err == nil {
		return w, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Wager{}, false, err
	}
	w, err = scanWager(t.tx.QueryRow(ctx, `SELECT `+wagerColumns+` FROM wagers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Wager{}, false, ErrNotFound
	}
	return w, false, err
}

func (t *pgTx) InsertWithdrawal(ctx context.Context, w Withdrawal) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO withdrawals (id, user_id, amount, method, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, w.ID, w.UserID, int64(w.Amount), w.Method, string(w.Status), w.CreatedAt)
	return err
}

func (t *pgTx) ResolveWithdrawal(ctx context.Context, id string, status WithdrawalStatus, at time.Time) (Withdrawal, bool, error) {
	query := `UPDATE withdrawals SET status = $2, processed_at = $3
        WHERE id = $1 AND status = 'pending'
        RETURNING ` + withdrawalColumns
	w, err := scanWithdrawal(t.tx.QueryRow(ctx, query, id, string(status), at))
	if err == nil {
		return w, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Withdrawal{}, false, err
	}
	w, err = scanWithdrawal(t.tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Withdrawal{}, false, ErrNotFound
	}
	return w, false, err
}

func scanWager(row pgx.Row) (Wager, error) {
	var (
		w             Wager
		odds, status  string
		stake, payout int64
	)
	err := row.Scan(&w.ID, &w.UserID, &w.MatchID, &w.League, &w.HomeTeam, &w.AwayTeam, &w.Selection,
		&odds, &stake, &payout, &status, &w.PlacedAt, &w.SettledAt)
	if err != nil {
		return Wager{}, err
	}
	if w.Odds, err = decimal.NewFromString(odds); err != nil {
		return Wager{}, fmt.Errorf("wager %s odds: %w", w.ID, err)
	}
	w.Stake = money.Amount(stake)
	w.PotentialWin = money.Amount(payout)
	w.Status = WagerStatus(status)
	return w, nil
}

func scanWithdrawal(row pgx.Row) (Withdrawal, error) {
	var (
		w      Withdrawal
		amount int64
		status string
	)
	if err := row.Scan(&w.ID, &w.UserID, &amount, &w.Method, &status, &w.CreatedAt, &w.ProcessedAt); err != nil {
		return Withdrawal{}, err
	}
	w.Amount = money.Amount(amount)
	w.Status = WithdrawalStatus(status)
	return w, nil
}

// PostgresJournal appends transaction records outside of the wallet transaction.
type PostgresJournal struct {
	db *pgxpool.Pool
}

func NewPostgresJournal(db *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{db: db}
}

func (j *PostgresJournal) Append(ctx context.Context, tx Transaction) error {
	_, err := j.db.Exec(ctx, `INSERT INTO transactions (id, user_id, type, amount, status, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, tx.UserID, string(tx.Type), int64(tx.Amount), tx.Status, tx.Reference, tx.CreatedAt)
	return err
}

func (j *PostgresJournal) ByUser(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.Query(ctx, `SELECT id, user_id, type, amount, status, reference, created_at
        FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Transaction, error) {
		var (
			tx     Transaction
			kind   string
			amount int64
		)
		if err := row.Scan(&tx.ID, &tx.UserID, &kind, &amount, &tx.Status, &tx.Reference, &tx.CreatedAt); err != nil {
			return Transaction{}, err
		}
		tx.Type = TransactionType(kind)
		tx.Amount = money.Amount(amount)
		return tx, nil
	})
}

// Open returns the Postgres backends for db, or in-memory ones when db is nil.
func Open(db *pgxpool.Pool) (Store, Journal) {
	if db == nil {
		return NewInMemory(), NewInMemoryJournal()
	}
	return NewPostgresStore(db), NewPostgresJournal(db)
}
