package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewTokenConfig(t *testing.T) {
	config := NewTokenConfig("/path/to/token.json", "PROBE_TOKEN")

	assert.NotNil(t, config)
	assert.Equal(t, "/path/to/token.json", config.TokenPath)
	assert.Equal(t, "PROBE_TOKEN", config.EnvVar)
}

func TestTokenConfig_LoadToken_Errors(t *testing.T) {
	t.Run("nonexistent_file", func(t *testing.T) {
		config := &TokenConfig{TokenPath: "/nonexistent/path/token.json"}

		token, err := config.LoadToken()
		assert.Error(t, err)
		assert.Nil(t, token)
		assert.Contains(t, err.Error(), "could not read token file")
	})

	t.Run("invalid_json", func(t *testing.T) {
		tokenPath := filepath.Join(t.TempDir(), "token.json")
		require.NoError(t, os.WriteFile(tokenPath, []byte("invalid json content"), 0o600))

		token, err := (&TokenConfig{TokenPath: tokenPath}).LoadToken()
		assert.Error(t, err)
		assert.Nil(t, token)
		assert.Contains(t, err.Error(), "could not parse token file")
	})

	t.Run("missing_access_token", func(t *testing.T) {
		tokenPath := filepath.Join(t.TempDir(), "token.json")
		require.NoError(t, os.WriteFile(tokenPath, []byte(`{"token_type":"Bearer"}`), 0o600))

		_, err := (&TokenConfig{TokenPath: tokenPath}).LoadToken()
		assert.ErrorContains(t, err, "no access_token")
	})
}

func TestTokenConfig_SaveAndLoad(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "nested", "token.json")
	config := NewTokenConfig(tokenPath, "")

	want := &oauth2.Token{
		AccessToken: "abc123",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour).Round(time.Second),
	}
	require.NoError(t, config.SaveToken(want))

	info, err := os.Stat(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := config.LoadToken()
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))
}

func TestTokenConfig_TokenSource(t *testing.T) {
	t.Run("nil_config", func(t *testing.T) {
		var config *TokenConfig
		_, err := config.TokenSource()
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("nothing_configured", func(t *testing.T) {
		_, err := NewTokenConfig("", "").TokenSource()
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("env_var_wins", func(t *testing.T) {
		t.Setenv("ASYNCPROBE_TEST_TOKEN", "from-env")
		config := NewTokenConfig("/nonexistent/token.json", "ASYNCPROBE_TEST_TOKEN")

		ts, err := config.TokenSource()
		require.NoError(t, err)
		tok, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "from-env", tok.AccessToken)
	})

	t.Run("from_file", func(t *testing.T) {
		tokenPath := filepath.Join(t.TempDir(), "token.json")
		config := NewTokenConfig(tokenPath, "ASYNCPROBE_UNSET_TOKEN")
		require.NoError(t, config.SaveToken(&oauth2.Token{AccessToken: "from-file"}))

		ts, err := config.TokenSource()
		require.NoError(t, err)
		tok, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "from-file", tok.AccessToken)
	})

	t.Run("expired_file_token", func(t *testing.T) {
		tokenPath := filepath.Join(t.TempDir(), "token.json")
		config := NewTokenConfig(tokenPath, "")
		require.NoError(t, config.SaveToken(&oauth2.Token{
			AccessToken: "old",
			Expiry:      time.Now().Add(-time.Hour),
		}))

		_, err := config.TokenSource()
		assert.ErrorContains(t, err, "expired")
	})
}
