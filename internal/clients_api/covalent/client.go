package covalent

// Covalent transactions_v2 feed: a wallet's recent transactions with decoded log events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"smartmoney-bot/internal/clients_api/httpjson"
	"smartmoney-bot/internal/domain"
	logging "smartmoney-bot/internal/infra/log"
	"smartmoney-bot/internal/infra/retry"
	"smartmoney-bot/internal/observability"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.covalenthq.com"
	sourceName     = "covalent"
)

// ErrAPI is returned when Covalent answers 2xx with error=true.
var ErrAPI = errors.New("covalent api error")

type Config struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	RatePerSecond   float64
	MaxResponseSize int64
	Retry           retry.Options
}

type Client struct {
	http    *httpjson.Client
	metrics *observability.Metrics
}

func NewClient(cfg Config, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		http: httpjson.New(httpjson.Options{
			Name:            sourceName,
			BaseURL:         cfg.BaseURL,
			Timeout:         cfg.Timeout,
			RatePerSecond:   cfg.RatePerSecond,
			Burst:           2,
			MaxResponseSize: cfg.MaxResponseSize,
			Retry:           cfg.Retry,
			Headers:         map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		}),
		metrics: metrics,
	}
}

type transactionsResponse struct {
	Data struct {
		Items []json.RawMessage `json:"items"`
	} `json:"data"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
	ErrorCode    *int   `json:"error_code"`
}

type transactionItem struct {
	TxHash        string     `json:"tx_hash"`
	BlockSignedAt string     `json:"block_signed_at"`
	ValueQuote    *float64   `json:"value_quote"`
	LogEvents     []logEvent `json:"log_events"`
}

type logEvent struct {
	SenderAddress string `json:"sender_address"`
	SenderSymbol  string `json:"sender_contract_ticker_symbol"`
	Decoded       *struct {
		Name   string `json:"name"`
		Params []struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		} `json:"params"`
	} `json:"decoded"`
}

// RecentActivity returns up to pageSize of the wallet's most recent
// transactions, newest first. Items that cannot be decoded are skipped.
func (c *Client) RecentActivity(ctx context.Context, wallet string, chainID int64, pageSize int) ([]domain.ActivityRecord, error) {
	path := fmt.Sprintf("/v1/%d/address/%s/transactions_v2/", chainID, url.PathEscape(wallet))
	query := url.Values{"page-size": {strconv.Itoa(pageSize)}}

	var resp transactionsResponse
	if err := c.http.GetJSON(ctx, path, query, &resp); err != nil {
		c.metrics.RecordUpstreamError(sourceName)
		return nil, err
	}
	if resp.Error {
		c.metrics.RecordUpstreamError(sourceName)
		code := 0
		if resp.ErrorCode != nil {
			code = *resp.ErrorCode
		}
		return nil, fmt.Errorf("%w: code %d: %s", ErrAPI, code, resp.ErrorMessage)
	}

	records := make([]domain.ActivityRecord, 0, len(resp.Data.Items))
	for i, raw := range resp.Data.Items {
		var item transactionItem
		if err := json.Unmarshal(raw, &item); err != nil {
			c.surprise(wallet, "item", zap.Int("index", i), zap.Error(err))
			continue
		}
		records = append(records, c.toRecord(wallet, chainID, item))
	}
	return records, nil
}

func (c *Client) toRecord(wallet string, chainID int64, item transactionItem) domain.ActivityRecord {
	rec := domain.ActivityRecord{
		TxHash:  item.TxHash,
		ChainID: chainID,
	}
	if item.BlockSignedAt != "" {
		if t, err := time.Parse(time.RFC3339, item.BlockSignedAt); err == nil {
			rec.BlockSignedAt = t
		} else {
			c.surprise(wallet, "block_signed_at", zap.String("value", item.BlockSignedAt))
		}
	}
	if item.ValueQuote != nil {
		rec.ValueQuoteUSD = *item.ValueQuote
	}

	for _, ev := range item.LogEvents {
		if ev.Decoded == nil {
			continue
		}
		te := domain.TransferEvent{
			Name:          ev.Decoded.Name,
			SenderAddress: ev.SenderAddress,
			SenderSymbol:  ev.SenderSymbol,
			ValueQuoteUSD: rec.ValueQuoteUSD,
		}
		for _, p := range ev.Decoded.Params {
			te.Params = append(te.Params, domain.EventParam{Name: p.Name, Value: paramString(p.Value)})
		}
		rec.Events = append(rec.Events, te)
	}
	return rec
}

// paramString renders a decoded param value; strings are unquoted, null is empty.
func paramString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (c *Client) surprise(wallet, field string, fields ...zap.Field) {
	c.metrics.RecordDataSurprise(sourceName, field)
	logging.LogWarn("Unexpected Covalent payload, skipping",
		append([]zap.Field{zap.String("wallet", wallet), zap.String("field", field)}, fields...)...)
}
