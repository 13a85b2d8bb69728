// Package auth resolves bearer credentials for outbound HTTP probes.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when neither a token file nor a token env var is set
var ErrNoToken = errors.New("no token configured")

// TokenConfig describes where a bearer token can be found
type TokenConfig struct {
	// TokenPath points to a JSON-encoded oauth2.Token
	TokenPath string
	// EnvVar names an environment variable holding a raw access token
	EnvVar string
}

// NewTokenConfig creates a token configuration
func NewTokenConfig(tokenPath, envVar string) *TokenConfig {
	return &TokenConfig{
		TokenPath: tokenPath,
		EnvVar:    envVar,
	}
}

// LoadToken loads the cached token from TokenPath
func (c *TokenConfig) LoadToken() (*oauth2.Token, error) {
	f, err := os.Open(c.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("could not read token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("could not parse token file: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("token file %s has no access_token", c.TokenPath)
	}
	return token, nil
}

// SaveToken writes token to TokenPath with owner-only permissions
func (c *TokenConfig) SaveToken(token *oauth2.Token) error {
	dir := filepath.Dir(c.TokenPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(c.TokenPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not save token: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

// TokenSource returns a static token source. The env var wins over the file.
// ErrNoToken means the caller should proceed unauthenticated.
func (c *TokenConfig) TokenSource() (oauth2.TokenSource, error) {
	if c == nil {
		return nil, ErrNoToken
	}
	if c.EnvVar != "" {
		if v := strings.TrimSpace(os.Getenv(c.EnvVar)); v != "" {
			return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: v, TokenType: "Bearer"}), nil
		}
	}
	if strings.TrimSpace(c.TokenPath) == "" {
		return nil, ErrNoToken
	}

	token, err := c.LoadToken()
	if err != nil {
		return nil, err
	}
	if !token.Valid() {
		return nil, fmt.Errorf("token in %s is expired", c.TokenPath)
	}
	return oauth2.StaticTokenSource(token), nil
}
