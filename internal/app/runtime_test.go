package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRuntimeDefaultsGeneratesMissingSecret(t *testing.T) {
	cfg := &Config{}

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"auth.jwt.secret"}, generated)
	require.Equal(t, jwtSecretBytes, SecretByteLength(cfg.Auth.JWT.Secret))
	require.Equal(t, defaultIssuer, cfg.Auth.JWT.Issuer)

	again, err := ApplyRuntimeDefaults(&Config{})
	require.NoError(t, err)
	require.NotEmpty(t, again)
}

func TestApplyRuntimeDefaultsKeepsConfiguredValues(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.JWT.Secret = strings.Repeat("a", 40)
	cfg.Auth.JWT.Issuer = "custom"

	generated, err := ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)
	require.Empty(t, generated)
	require.Equal(t, strings.Repeat("a", 40), cfg.Auth.JWT.Secret)
	require.Equal(t, "custom", cfg.Auth.JWT.Issuer)
}

func TestApplyRuntimeDefaultsNilConfig(t *testing.T) {
	_, err := ApplyRuntimeDefaults(nil)
	require.EqualError(t, err, "config is nil")
}

func TestConfigureLogging(t *testing.T) {
	require.NoError(t, ConfigureLogging(ServerConfig{LogLevel: "debug", LogFormat: "console"}))
	require.NoError(t, ConfigureLogging(ServerConfig{LogLevel: "warn"}))
	require.NoError(t, ConfigureLogging(ServerConfig{}))
}
