package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"github.com/cashops/atmctl/internal/common"
)

// OAuth2Config holds OAuth2 client credentials and an optional token cache
// location.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
}

func (c OAuth2Config) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// LoadToken loads a cached token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

// saveToken writes a token to the cache file.
func saveToken(path string, token *oauth2.Token) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// GetOrRefreshToken returns a usable token without any interactive flow:
// the cached token when it is still valid, a refreshed one otherwise,
// falling back to the configured refresh token when no cache exists.
func GetOrRefreshToken(ctx context.Context, config OAuth2Config, refreshToken string) (*oauth2.Token, error) {
	if config.TokenFile != "" {
		if token, err := LoadToken(config.TokenFile); err == nil {
			if token.RefreshToken == "" {
				token.RefreshToken = refreshToken
			}
			return RefreshTokenIfNeeded(ctx, config, token)
		}
	}

	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no cached token and no refresh token", common.ErrMissingConfig)
	}
	return RefreshTokenIfNeeded(ctx, config, &oauth2.Token{RefreshToken: refreshToken})
}

// RefreshTokenIfNeeded refreshes the token if it's expired, saving the
// refreshed token back to the cache when one is configured.
func RefreshTokenIfNeeded(ctx context.Context, config OAuth2Config, token *oauth2.Token) (*oauth2.Token, error) {
	if token.Valid() {
		return token, nil
	}

	slog.Info("Token expired, refreshing...")

	newToken, err := config.oauthConfig().TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if config.TokenFile != "" {
		if err := saveToken(config.TokenFile, newToken); err != nil {
			slog.Warn("Failed to save refreshed token", "error", err)
		}
	}

	return newToken, nil
}
