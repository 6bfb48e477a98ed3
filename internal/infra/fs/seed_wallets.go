package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"smartmoney-bot/internal/domain"
	logging "smartmoney-bot/internal/infra/log"

	"go.uber.org/zap"
)

// ErrWalletNotInFile is returned by RemoveSeedWallet for an unknown address.
var ErrWalletNotInFile = errors.New("wallet not in seed file")

type SeedWalletsData struct {
	Wallets []domain.WatchedWallet `json:"wallets"`
}

// SeedFileExists reports whether the seed file is present on disk.
func SeedFileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

// LoadSeedWallets reads the seed file. A missing or empty file yields an empty list.
func LoadSeedWallets(filePath string) ([]domain.WatchedWallet, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		logging.LogDebug("Seed wallets file does not exist, returning empty list", zap.String("file", filePath))
		return []domain.WatchedWallet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed wallets file: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "{}" {
		return []domain.WatchedWallet{}, nil
	}

	var seed SeedWalletsData
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed wallets JSON: %w", err)
	}
	if seed.Wallets == nil {
		seed.Wallets = []domain.WatchedWallet{}
	}

	logging.LogDebug("Loaded seed wallets from file", zap.String("file", filePath), zap.Int("count", len(seed.Wallets)))
	return seed.Wallets, nil
}

// SaveSeedWallets writes the file through a temp file and rename.
func SaveSeedWallets(filePath string, wallets []domain.WatchedWallet) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(SeedWalletsData{Wallets: wallets}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seed wallets JSON: %w", err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary seed wallets file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace seed wallets file: %w", err)
	}

	logging.LogInfo("Saved seed wallets to file", zap.String("file", filePath), zap.Int("count", len(wallets)))
	return nil
}

// AddSeedWallet inserts or updates one wallet, matched by address case-insensitively.
func AddSeedWallet(filePath string, w domain.WatchedWallet) error {
	if w.Address == "" {
		return fmt.Errorf("wallet address cannot be empty")
	}

	wallets, err := LoadSeedWallets(filePath)
	if err != nil {
		return err
	}

	replaced := false
	for i := range wallets {
		if strings.EqualFold(wallets[i].Address, w.Address) {
			wallets[i] = w
			replaced = true
			break
		}
	}
	if !replaced {
		wallets = append(wallets, w)
	}
	return SaveSeedWallets(filePath, wallets)
}

// RemoveSeedWallet deletes one wallet. Returns ErrWalletNotInFile if absent.
func RemoveSeedWallet(filePath, address string) error {
	wallets, err := LoadSeedWallets(filePath)
	if err != nil {
		return err
	}

	kept := wallets[:0]
	for _, w := range wallets {
		if !strings.EqualFold(w.Address, address) {
			kept = append(kept, w)
		}
	}
	if len(kept) == len(wallets) {
		return ErrWalletNotInFile
	}
	return SaveSeedWallets(filePath, kept)
}
