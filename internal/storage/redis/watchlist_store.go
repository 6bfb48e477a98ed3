package redis

import (
	"context"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"smartmoney-bot/internal/domain"
	logging "smartmoney-bot/internal/infra/log"
	"smartmoney-bot/internal/storage"

	"go.uber.org/zap"
)

// WatchlistStore implements storage.WatchlistStore on a set plus one hash per wallet.
type WatchlistStore struct {
	c *Client
}

func NewWatchlistStore(c *Client) *WatchlistStore {
	return &WatchlistStore{c: c}
}

var _ storage.WatchlistStore = (*WatchlistStore)(nil)

func (s *WatchlistStore) ListWallets(ctx context.Context) ([]domain.WatchedWallet, error) {
	addrs, err := s.c.rdb.SMembers(ctx, s.c.walletsKey()).Result()
	if err != nil {
		return nil, wrapErr("list wallets", err)
	}
	if len(addrs) == 0 {
		return []domain.WatchedWallet{}, nil
	}
	sort.Strings(addrs)

	cmds := make([]*goredis.MapStringStringCmd, len(addrs))
	_, err = s.c.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, addr := range addrs {
			cmds[i] = pipe.HGetAll(ctx, s.c.walletKey(addr))
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("read wallet hashes", err)
	}

	out := make([]domain.WatchedWallet, 0, len(addrs))
	for i, addr := range addrs {
		out = append(out, readWallet(addr, cmds[i].Val()))
	}
	return out, nil
}

func (s *WatchlistStore) GetWallet(ctx context.Context, address string) (*domain.WatchedWallet, error) {
	member, err := s.c.rdb.SIsMember(ctx, s.c.walletsKey(), address).Result()
	if err != nil {
		return nil, wrapErr("check wallet", err)
	}
	if !member {
		return nil, storage.ErrNotFound
	}

	fields, err := s.c.rdb.HGetAll(ctx, s.c.walletKey(address)).Result()
	if err != nil {
		return nil, wrapErr("read wallet", err)
	}
	w := readWallet(address, fields)
	return &w, nil
}

// ReplaceWallets rewrites the set and the hashes in one MULTI/EXEC and drops
// hashes of wallets that are no longer tracked.
func (s *WatchlistStore) ReplaceWallets(ctx context.Context, wallets []domain.WatchedWallet) error {
	for _, w := range wallets {
		if w.Address == "" {
			return storage.ErrInvalidInput
		}
	}

	previous, err := s.c.rdb.SMembers(ctx, s.c.walletsKey()).Result()
	if err != nil {
		return wrapErr("list previous wallets", err)
	}

	keep := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		keep[w.Address] = struct{}{}
	}

	_, err = s.c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.c.walletsKey())
		for _, addr := range previous {
			if _, ok := keep[addr]; !ok {
				pipe.Del(ctx, s.c.walletKey(addr))
			}
		}
		for _, w := range wallets {
			pipe.SAdd(ctx, s.c.walletsKey(), w.Address)
			pipe.HSet(ctx, s.c.walletKey(w.Address), encodeWallet(w))
		}
		return nil
	})
	return wrapErr("replace wallets", err)
}

func encodeWallet(w domain.WatchedWallet) map[string]interface{} {
	return map[string]interface{}{
		"roi30":      strconv.FormatFloat(w.RoiPct30d, 'f', -1, 64),
		"winrate":    strconv.FormatFloat(w.WinRate, 'f', -1, 64),
		"chain_id":   strconv.FormatInt(w.ChainID, 10),
		"updated_at": w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// readWallet decodes a wallet hash and logs fields that did not parse.
func readWallet(addr string, fields map[string]string) domain.WatchedWallet {
	w, bad := decodeWallet(addr, fields)
	if len(bad) > 0 {
		logging.LogWarn("Unparsable watchlist fields, treated as zero",
			zap.String("wallet", addr), zap.Strings("fields", bad))
	}
	return w
}

// decodeWallet returns the wallet and the names of fields that failed to
// parse. Absent fields are not reported.
func decodeWallet(addr string, fields map[string]string) (domain.WatchedWallet, []string) {
	w := domain.WatchedWallet{Address: addr}
	var bad []string
	parse := func(name string, fn func(string) error) {
		raw, ok := fields[name]
		if !ok {
			return
		}
		if err := fn(raw); err != nil {
			bad = append(bad, name)
		}
	}

	parse("roi30", func(raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			w.RoiPct30d = v
		}
		return err
	})
	parse("winrate", func(raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			w.WinRate = v
		}
		return err
	})
	parse("chain_id", func(raw string) error {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			w.ChainID = v
		}
		return err
	})
	parse("updated_at", func(raw string) error {
		v, err := time.Parse(time.RFC3339, raw)
		if err == nil {
			w.UpdatedAt = v
		}
		return err
	})
	return w, bad
}
