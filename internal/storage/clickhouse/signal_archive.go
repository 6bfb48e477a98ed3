package clickhouse

import (
	"context"
	"time"

	"smartmoney-bot/internal/domain"
	"smartmoney-bot/internal/storage"
)

// SignalArchive implements storage.SignalArchive as an append-only MergeTree table.
type SignalArchive struct {
	conn *Conn
}

func NewSignalArchive(conn *Conn) *SignalArchive {
	return &SignalArchive{conn: conn}
}

var _ storage.SignalArchive = (*SignalArchive)(nil)

func (a *SignalArchive) Append(ctx context.Context, s domain.WhaleSignal) error {
	err := a.conn.Exec(ctx, `
		INSERT INTO whale_signals (
			detected_at, wallet, token, token_symbol, chain_id, tx_hash,
			volume_usd, liquidity_usd, roi, winrate,
			co_whales, token_age_days, score, stars, reference_link
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.DetectedAt.UTC(), s.Wallet, s.Token, s.TokenSymbol, s.ChainID, s.TxHash,
		s.VolumeUSD, s.LiquidityUSD, s.Roi, s.WinRate,
		uint32(s.CoWhaleCount24h), int32(s.TokenAgeDays), int32(s.Score), uint8(s.Stars), s.ReferenceLink,
	)
	return storage.Unavailable("insert whale signal", err)
}

func (a *SignalArchive) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n uint64
	if err := a.conn.QueryRow(ctx, `SELECT count() FROM whale_signals WHERE detected_at >= ?`, since.UTC()).Scan(&n); err != nil {
		return 0, storage.Unavailable("count whale signals", err)
	}
	return int(n), nil
}
