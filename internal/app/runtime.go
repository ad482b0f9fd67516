package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbmarketing1011/restaunax-backend/pkg/crypto"
	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
)

const (
	jwtSecretBytes = 48
	defaultIssuer  = "restaunax"
)

// ApplyRuntimeDefaults fills values a bare deployment leaves empty. It returns the config keys
// whose secrets were generated, never the secrets themselves.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var generated []string
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated = append(generated, "auth.jwt.secret")
	}
	if strings.TrimSpace(cfg.Auth.JWT.Issuer) == "" {
		cfg.Auth.JWT.Issuer = defaultIssuer
	}
	return generated, nil
}

// ConfigureLogging installs the global logger described by the server section.
func ConfigureLogging(server ServerConfig) error {
	return logger.InitWithOptions(logger.Options{
		Level:  server.LogLevel,
		Format: server.LogFormat,
	})
}
