package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/storage"
)

// WatchlistStore implements storage.WatchlistStore using PostgreSQL.
type WatchlistStore struct {
	pool *Pool
}

func NewWatchlistStore(pool *Pool) *WatchlistStore {
	return &WatchlistStore{pool: pool}
}

var _ storage.WatchlistStore = (*WatchlistStore)(nil)

func (s *WatchlistStore) ListWallets(ctx context.Context) ([]domain.WatchedWallet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, roi30, winrate, chain_id, updated_at
		FROM watched_wallets
		ORDER BY address
	`)
	if err != nil {
		return nil, wrapErr("list wallets", err)
	}
	defer rows.Close()

	out := []domain.WatchedWallet{}
	for rows.Next() {
		var w domain.WatchedWallet
		if err := rows.Scan(&w.Address, &w.RoiPct30d, &w.WinRate, &w.ChainID, &w.UpdatedAt); err != nil {
			return nil, wrapErr("scan wallet", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate wallets", err)
	}
	return out, nil
}

func (s *WatchlistStore) GetWallet(ctx context.Context, address string) (*domain.WatchedWallet, error) {
	var w domain.WatchedWallet
	err := s.pool.QueryRow(ctx, `
		SELECT address, roi30, winrate, chain_id, updated_at
		FROM watched_wallets
		WHERE address = $1
	`, address).Scan(&w.Address, &w.RoiPct30d, &w.WinRate, &w.ChainID, &w.UpdatedAt)
	if err != nil {
		return nil, wrapErr("get wallet", err)
	}
	return &w, nil
}

// ReplaceWallets truncates and refills the table in one transaction.
func (s *WatchlistStore) ReplaceWallets(ctx context.Context, wallets []domain.WatchedWallet) error {
	for _, w := range wallets {
		if w.Address == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapErr("begin replace", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM watched_wallets`); err != nil {
		return wrapErr("clear wallets", err)
	}

	batch := &pgx.Batch{}
	for _, w := range wallets {
		batch.Queue(`
			INSERT INTO watched_wallets (address, roi30, winrate, chain_id, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (address) DO UPDATE
			SET roi30 = EXCLUDED.roi30, winrate = EXCLUDED.winrate,
			    chain_id = EXCLUDED.chain_id, updated_at = EXCLUDED.updated_at
		`, w.Address, w.RoiPct30d, w.WinRate, w.ChainID, w.UpdatedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return wrapErr(fmt.Sprintf("insert %d wallets", len(wallets)), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapErr("commit replace", err)
	}
	return nil
}
