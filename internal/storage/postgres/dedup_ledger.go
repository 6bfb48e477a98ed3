package postgres

import (
	"context"
	"time"

	"smartmoney-bot/internal/storage"
)

// DedupLedger implements storage.DedupLedger using PostgreSQL.
type DedupLedger struct {
	pool  *Pool
	clock storage.Clock
}

// NewDedupLedger creates a ledger. A nil clock means time.Now.
func NewDedupLedger(pool *Pool, clock storage.Clock) *DedupLedger {
	return &DedupLedger{pool: pool, clock: clock}
}

var _ storage.DedupLedger = (*DedupLedger)(nil)

func (l *DedupLedger) IsSeen(ctx context.Context, wallet, txHash string) (bool, error) {
	var seen bool
	err := l.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM seen_transactions
			WHERE wallet = $1 AND tx_hash = $2 AND seen_at > $3
		)
	`, wallet, txHash, l.clock.Now().Add(-storage.SeenRetention)).Scan(&seen)
	if err != nil {
		return false, wrapErr("check seen", err)
	}
	return seen, nil
}

func (l *DedupLedger) MarkSeen(ctx context.Context, wallet, txHash string) error {
	if wallet == "" || txHash == "" {
		return storage.ErrInvalidInput
	}
	now := l.clock.Now()

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return wrapErr("begin mark seen", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO seen_transactions (wallet, tx_hash, seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet, tx_hash) DO UPDATE SET seen_at = EXCLUDED.seen_at
	`, wallet, txHash, now); err != nil {
		return wrapErr("insert seen", err)
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM seen_transactions WHERE wallet = $1 AND seen_at <= $2
	`, wallet, now.Add(-storage.SeenRetention)); err != nil {
		return wrapErr("prune seen", err)
	}

	return wrapErr("commit mark seen", tx.Commit(ctx))
}

func (l *DedupLedger) RecordWhaleTouch(ctx context.Context, token, wallet string, at time.Time) error {
	if token == "" || wallet == "" {
		return storage.ErrInvalidInput
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return wrapErr("begin whale touch", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO whale_touches (token, wallet, touched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token, wallet) DO UPDATE SET touched_at = EXCLUDED.touched_at
	`, token, wallet, at); err != nil {
		return wrapErr("upsert whale touch", err)
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM whale_touches WHERE token = $1 AND touched_at < $2
	`, token, l.clock.Now().Add(-storage.WhaleRetention)); err != nil {
		return wrapErr("prune whale touches", err)
	}

	return wrapErr("commit whale touch", tx.Commit(ctx))
}

func (l *DedupLedger) CountRecentWhales(ctx context.Context, token string, window time.Duration) (int, error) {
	window = storage.WhaleWindow(window)

	var n int
	err := l.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT wallet) FROM whale_touches
		WHERE token = $1 AND touched_at > $2
	`, token, l.clock.Now().Add(-window)).Scan(&n)
	if err != nil {
		return 0, wrapErr("count whales", err)
	}
	return n, nil
}
