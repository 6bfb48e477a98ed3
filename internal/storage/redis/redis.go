package redis

// Key/value backend for the watchlist, the dedup ledger and the whale windows
// Layout (prefix defaults to "sm:"):
//   {prefix}wallets           set of tracked addresses
//   {prefix}wallet:{addr}     hash {roi30, winrate, chain_id, updated_at}
//   {prefix}seen:{wallet}     sorted set tx -> insert unix time, TTL refreshed per insert
//   {prefix}whales:{token}    sorted set wallet -> touch unix time, pruned to 3 days

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"smartmoney-bot/internal/storage"
)

const DefaultKeyPrefix = "sm:"

// Client wraps the go-redis client with the key layout.
type Client struct {
	rdb    *goredis.Client
	prefix string
}

// NewClient connects to url (redis://host:port/db) and pings it.
func NewClient(ctx context.Context, url, prefix string) (*Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, storage.Unavailable("ping redis", err)
	}

	return Wrap(rdb, prefix), nil
}

// Wrap uses an existing go-redis client.
func Wrap(rdb *goredis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) walletsKey() string { return c.prefix + "wallets" }
func (c *Client) walletKey(addr string) string { return c.prefix + "wallet:" + addr }
func (c *Client) seenKey(wallet string) string { return c.prefix + "seen:" + wallet }
func (c *Client) whalesKey(token string) string { return c.prefix + "whales:" + token }

// wrapErr maps every failure except a missing key to ErrUnavailable.
func wrapErr(op string, err error) error {
	if err == nil || errors.Is(err, goredis.Nil) {
		return nil
	}
	return storage.Unavailable(op, err)
}
