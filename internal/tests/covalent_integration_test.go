//go:build integration

package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"smartmoney-bot/internal/clients_api/covalent"
	"smartmoney-bot/internal/infra/retry"
)

// binance hot wallet, always active
const activeWallet = "0x28c6c06298d514db089934071355e5743bf21d60"

func TestIntegration_Covalent_RecentActivity(t *testing.T) {
	key := os.Getenv("COVALENT_KEY")
	if key == "" {
		t.Skip("COVALENT_KEY is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := covalent.NewClient(covalent.Config{APIKey: key, Timeout: 30 * time.Second, Retry: retry.DefaultOptions}, nil)
	records, err := client.RecentActivity(ctx, activeWallet, 1, 5)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(records) == 0 {
		t.Fatalf("expected recent transactions for %s", activeWallet)
	}
	for _, rec := range records {
		if rec.TxHash == "" {
			t.Fatalf("record without tx hash: %+v", rec)
		}
	}
}

func TestIntegration_Covalent_BadKey(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := covalent.NewClient(covalent.Config{APIKey: "invalid", Timeout: 30 * time.Second}, nil)
	if _, err := client.RecentActivity(ctx, activeWallet, 1, 5); err == nil {
		t.Fatalf("expected an error for an invalid key")
	}
}
