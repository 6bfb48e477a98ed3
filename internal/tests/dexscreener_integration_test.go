//go:build integration

package tests

import (
	"context"
	"testing"
	"time"

	"smartmoney-bot/internal/clients_api/dexscreener"
	"smartmoney-bot/internal/infra/retry"
)

const usdcToken = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"

func TestIntegration_Dexscreener_TokenSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := dexscreener.NewClient(dexscreener.Config{Timeout: 15 * time.Second, Retry: retry.DefaultOptions}, nil)
	snap, err := client.TokenSnapshot(ctx, usdcToken)
	if err != nil {
		t.Fatalf("TokenSnapshot failed: %v", err)
	}
	if snap.LiquidityUSD <= 0 {
		t.Fatalf("expected liquidity > 0, got %f", snap.LiquidityUSD)
	}
	if !snap.AgeKnown() {
		t.Fatalf("expected a known listing age for USDC")
	}
	if snap.PairURL == "" {
		t.Fatalf("expected a pair url")
	}
}

func TestIntegration_Dexscreener_UnknownToken(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := dexscreener.NewClient(dexscreener.Config{Timeout: 15 * time.Second, Retry: retry.DefaultOptions}, nil)
	snap, err := client.TokenSnapshot(ctx, "0x000000000000000000000000000000000000dead")
	if err != nil {
		t.Fatalf("TokenSnapshot failed: %v", err)
	}
	if snap.LiquidityUSD != 0 || snap.AgeKnown() {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
