package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_API_TOKEN", "token-value")
	t.Setenv("DISCORD_CHANNEL_ID", "123456789012345678")
	t.Setenv(LegacyTokenVar, "")
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	base := t.TempDir()
	t.Setenv("BOT_BASE_DIR", base)

	cfg, err := Load()
	req.NoError(err)

	req.Equal("token-value", cfg.Token)
	req.Equal("123456789012345678", cfg.ChannelID)
	req.Equal(filepath.Join(base, CommandsDirName), cfg.CommandsDir)
	req.Equal(filepath.Join(base, "data", "extensions.db"), cfg.StorePath)
	req.Equal("!", cfg.Prefix)
	req.Equal("all", cfg.Intents)
	req.Equal(5, cfg.ConnectAttempts)
	req.Equal(time.Second, cfg.ConnectBackoff)
}

func TestLoad_EachMissingVariableIsNamedOnce(t *testing.T) {
	for _, name := range []string{"DISCORD_API_TOKEN", "DISCORD_CHANNEL_ID"} {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			setRequired(t)
			t.Setenv("BOT_BASE_DIR", t.TempDir())

			// Given one required variable is blank
			t.Setenv(name, "   ")

			// When the config is loaded
			_, err := Load()

			// Then exactly that variable is reported
			var cerr *ConfigurationError
			req.True(errors.As(err, &cerr))
			req.Equal([]string{name}, cerr.Missing)
			req.Equal(1, strings.Count(err.Error(), name))
		})
	}
}

func TestLoad_AllMissingVariablesReportedTogether(t *testing.T) {
	req := require.New(t)
	t.Setenv("DISCORD_API_TOKEN", "")
	t.Setenv("DISCORD_CHANNEL_ID", "")
	t.Setenv(LegacyTokenVar, "")

	_, err := Load()

	var cerr *ConfigurationError
	req.True(errors.As(err, &cerr))
	req.Equal([]string{"DISCORD_API_TOKEN", "DISCORD_CHANNEL_ID"}, cerr.Missing)
	req.Empty(cerr.Hint)
}

func TestLoad_LegacySecretIsNotUsedAsToken(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("DISCORD_API_TOKEN", "")
	t.Setenv(LegacyTokenVar, "old-secret")

	_, err := Load()

	var cerr *ConfigurationError
	req.True(errors.As(err, &cerr))
	req.Equal([]string{"DISCORD_API_TOKEN"}, cerr.Missing)
	req.Contains(cerr.Error(), LegacyTokenVar)
}

func TestLoad_InvalidValues(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("BOT_INTENTS", "everything")
	t.Setenv("BOT_CONNECT_ATTEMPTS", "0")

	_, err := Load()

	var cerr *ConfigurationError
	req.True(errors.As(err, &cerr))
	req.Empty(cerr.Missing)
	req.Len(cerr.Invalid, 2)
	req.Contains(err.Error(), "BOT_INTENTS")
	req.Contains(err.Error(), "BOT_CONNECT_ATTEMPTS")
}

func TestLoad_UnparsableValuesAreConfigurationErrors(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("BOT_CONNECT_ATTEMPTS", "five")
	t.Setenv("BOT_CONNECT_BACKOFF", "soon")

	_, err := Load()

	var cerr *ConfigurationError
	req.True(errors.As(err, &cerr))
	req.Len(cerr.Invalid, 2)
	req.Contains(err.Error(), `BOT_CONNECT_ATTEMPTS="five"`)
	req.Contains(err.Error(), `BOT_CONNECT_BACKOFF="soon"`)
}

func TestConfig_StringRedactsToken(t *testing.T) {
	cfg := &Config{Token: "super-secret", ChannelID: "1"}
	require.NotContains(t, cfg.String(), "super-secret")
	require.NotContains(t, cfg.LogValue().String(), "super-secret")
}
