package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logging "smartmoney-bot/internal/infra/log"

	"go.uber.org/zap"
)

// ErrTokenNotInList is returned by RemoveBlacklistedToken for an unknown token.
var ErrTokenNotInList = errors.New("token not found in list")

// BlacklistedTokensData is the file layout: token contract addresses, lowercased.
type BlacklistedTokensData struct {
	Tokens []string `json:"tokens"`
}

func LoadBlacklistedTokens(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		logging.LogDebug("Blacklisted tokens file does not exist, returning empty list", zap.String("file", filePath))
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blacklisted tokens file: %w", err)
	}

	if trimmed := strings.TrimSpace(string(data)); trimmed == "" || trimmed == "{}" {
		return []string{}, nil
	}

	var tokensData BlacklistedTokensData
	if err := json.Unmarshal(data, &tokensData); err != nil {
		return nil, fmt.Errorf("failed to parse blacklisted tokens JSON: %w", err)
	}

	tokens := make([]string, 0, len(tokensData.Tokens))
	for _, t := range tokensData.Tokens {
		if t = normalizeToken(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

func SaveBlacklistedTokens(filePath string, tokens []string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(BlacklistedTokensData{Tokens: tokens}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal blacklisted tokens JSON: %w", err)
	}

	tempFilePath := filePath + ".tmp"
	if err := os.WriteFile(tempFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary blacklisted tokens file: %w", err)
	}
	if err := os.Rename(tempFilePath, filePath); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to rename temporary file to blacklisted tokens file: %w", err)
	}

	logging.LogInfo("Saved blacklisted tokens to file", zap.String("file", filePath), zap.Int("count", len(tokens)))
	return nil
}

// AddBlacklistedToken is a no-op for a token already listed.
func AddBlacklistedToken(filePath, token string) error {
	token = normalizeToken(token)
	if token == "" {
		return fmt.Errorf("token address cannot be empty")
	}

	tokens, err := LoadBlacklistedTokens(filePath)
	if err != nil {
		return err
	}
	if IsTokenBlacklisted(token, tokens) {
		logging.LogDebug("Token already in blacklisted list", zap.String("token", token))
		return nil
	}
	return SaveBlacklistedTokens(filePath, append(tokens, token))
}

func RemoveBlacklistedToken(filePath, token string) error {
	token = normalizeToken(token)

	tokens, err := LoadBlacklistedTokens(filePath)
	if err != nil {
		return err
	}

	kept := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tokens) {
		return ErrTokenNotInList
	}
	return SaveBlacklistedTokens(filePath, kept)
}

func IsTokenBlacklisted(token string, blacklistedTokens []string) bool {
	token = normalizeToken(token)
	if token == "" {
		return false
	}
	for _, t := range blacklistedTokens {
		if normalizeToken(t) == token {
			return true
		}
	}
	return false
}

func normalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}
