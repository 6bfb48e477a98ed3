package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"smartmoney-bot/internal/storage"
)

// DedupLedger implements storage.DedupLedger on per-wallet and per-token
// sorted sets scored by unix milliseconds.
type DedupLedger struct {
	c     *Client
	clock storage.Clock
}

// NewDedupLedger creates a ledger. A nil clock means time.Now.
func NewDedupLedger(c *Client, clock storage.Clock) *DedupLedger {
	return &DedupLedger{c: c, clock: clock}
}

var _ storage.DedupLedger = (*DedupLedger)(nil)

func (l *DedupLedger) IsSeen(ctx context.Context, wallet, txHash string) (bool, error) {
	score, err := l.c.rdb.ZScore(ctx, l.c.seenKey(wallet), txHash).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("check seen", err)
	}

	cutoff := l.clock.Now().Add(-storage.SeenRetention).UnixMilli()
	return int64(score) > cutoff, nil
}

func (l *DedupLedger) MarkSeen(ctx context.Context, wallet, txHash string) error {
	if wallet == "" || txHash == "" {
		return storage.ErrInvalidInput
	}

	now := l.clock.Now()
	key := l.c.seenKey(wallet)
	cutoff := now.Add(-storage.SeenRetention).UnixMilli()

	_, err := l.c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixMilli()), Member: txHash})
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
		pipe.Expire(ctx, key, storage.SeenRetention)
		return nil
	})
	return wrapErr("mark seen", err)
}

// RecordWhaleTouch upserts one member per wallet, so concurrent touches by
// different wallets never overwrite each other.
func (l *DedupLedger) RecordWhaleTouch(ctx context.Context, token, wallet string, at time.Time) error {
	if token == "" || wallet == "" {
		return storage.ErrInvalidInput
	}

	key := l.c.whalesKey(token)
	cutoff := l.clock.Now().Add(-storage.WhaleRetention).UnixMilli()

	_, err := l.c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(at.UnixMilli()), Member: wallet})
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		pipe.Expire(ctx, key, storage.WhaleRetention)
		return nil
	})
	return wrapErr("record whale touch", err)
}

func (l *DedupLedger) CountRecentWhales(ctx context.Context, token string, window time.Duration) (int, error) {
	window = storage.WhaleWindow(window)

	cutoff := l.clock.Now().Add(-window).UnixMilli()
	n, err := l.c.rdb.ZCount(ctx, l.c.whalesKey(token), "("+strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return 0, wrapErr("count whales", err)
	}
	return int(n), nil
}
