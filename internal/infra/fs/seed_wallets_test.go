package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmoney-bot/internal/domain"
)

func TestLoadSeedWallets_MissingFile(t *testing.T) {
	wallets, err := LoadSeedWallets(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestLoadSeedWallets_EmptyObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	wallets, err := LoadSeedWallets(path)
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestLoadSeedWallets_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"wallets": [`), 0644))

	_, err := LoadSeedWallets(path)
	assert.Error(t, err)
}

func TestSeedWallets_AddUpdateRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seed.json")

	require.NoError(t, AddSeedWallet(path, domain.WatchedWallet{Address: "0xabc", ChainID: 1, RoiPct30d: 10, WinRate: 50}))
	require.NoError(t, AddSeedWallet(path, domain.WatchedWallet{Address: "0xdef", ChainID: 56, RoiPct30d: 20, WinRate: 60}))
	require.NoError(t, AddSeedWallet(path, domain.WatchedWallet{Address: "0xABC", ChainID: 1, RoiPct30d: 99, WinRate: 90}))

	wallets, err := LoadSeedWallets(path)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, 99.0, wallets[0].RoiPct30d)

	require.NoError(t, RemoveSeedWallet(path, "0xdef"))
	assert.ErrorIs(t, RemoveSeedWallet(path, "0x404"), ErrWalletNotInFile)

	wallets, err = LoadSeedWallets(path)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "0xABC", wallets[0].Address)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestAddSeedWallet_RequiresAddress(t *testing.T) {
	assert.Error(t, AddSeedWallet(filepath.Join(t.TempDir(), "s.json"), domain.WatchedWallet{}))
}
