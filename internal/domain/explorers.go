package domain

import "strings"

// DefaultChainID is used for wallets stored without a chain.
const DefaultChainID int64 = 1

var explorers = map[int64]string{
	1:     "https://etherscan.io",
	10:    "https://optimistic.etherscan.io",
	56:    "https://bscscan.com",
	137:   "https://polygonscan.com",
	8453:  "https://basescan.org",
	42161: "https://arbiscan.io",
}

// ExplorerBase returns the block explorer for a chain, etherscan for unknown chains.
func ExplorerBase(chainID int64) string {
	if base, ok := explorers[chainID]; ok {
		return base
	}
	return explorers[DefaultChainID]
}

func ExplorerTxURL(chainID int64, txHash string) string {
	return ExplorerBase(chainID) + "/tx/" + txHash
}

func ExplorerTokenURL(chainID int64, token string) string {
	return ExplorerBase(chainID) + "/token/" + token
}

func ExplorerAddressURL(chainID int64, address string) string {
	return ExplorerBase(chainID) + "/address/" + address
}

// DexScreenerSearchURL links to DexScreener's search for a token.
func DexScreenerSearchURL(token string) string {
	return "https://dexscreener.com/search?q=" + strings.ToLower(token)
}
