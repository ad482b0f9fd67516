package app

import (
	"strings"

	"github.com/rbmarketing1011/restaunax-backend/internal/auth"
	"github.com/rbmarketing1011/restaunax-backend/internal/cache"
	"github.com/rbmarketing1011/restaunax-backend/internal/database"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
	"github.com/rbmarketing1011/restaunax-backend/pkg/mail"
)

// ConnectionConfig resolves driver aliases and picks the host section matching the driver.
// Unknown drivers pass through so database.Open reports them.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	out := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:            strings.TrimSpace(c.Path),
		DSN:             strings.TrimSpace(c.DSN),
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		SlowQuery:       c.SlowQuery,
	}

	var host *DBAuthConfig
	switch out.Driver {
	case "", "sqlite", "sqlite3":
		out.Driver = "sqlite"
	case "postgres", "postgresql":
		out.Driver, host = "postgres", &c.Postgres
	case "mysql", "mariadb":
		out.Driver, host = "mysql", &c.MySQL
	}
	if host == nil {
		return out
	}

	out.Host = strings.TrimSpace(host.Host)
	out.Port = host.Port
	out.Name = strings.TrimSpace(host.Database)
	out.User = strings.TrimSpace(host.Username)
	out.Password = host.Password
	out.Options = host.Options
	return out
}

func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	r := c.Redis
	return cache.RedisConfig{
		Address:  strings.TrimSpace(r.Address),
		Username: strings.TrimSpace(r.Username),
		Password: r.Password,
		DB:       r.DB,
		TLS:      r.TLS,
		Timeout:  r.Timeout,
		PoolSize: r.PoolSize,
	}
}

// JWTServiceConfig falls back to auth.DefaultAccessTokenTTL when no TTL is configured.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}
	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         strings.TrimSpace(c.JWT.Issuer),
		AccessTokenTTL: ttl,
	}
}

// PasswordPolicy uses the default policy wholesale when no minimum length is set.
func (c AuthConfig) PasswordPolicy() services.PasswordPolicy {
	p := c.Password
	if p.MinLength <= 0 {
		return services.DefaultPasswordPolicy()
	}
	return services.PasswordPolicy{
		MinLength:     p.MinLength,
		RequireUpper:  p.RequireUpper,
		RequireLower:  p.RequireLower,
		RequireDigit:  p.RequireDigit,
		RequireSymbol: p.RequireSymbol,
	}
}

func (c AuthConfig) VerificationOptions() []services.VerificationOption {
	return []services.VerificationOption{
		services.WithVerificationBaseURL(c.Verification.BaseURL),
		services.WithVerificationExpiry(c.Verification.TTL),
	}
}

func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	s := c.SMTP
	return mail.SMTPSettings{
		Enabled:  s.Enabled,
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     s.From,
		UseTLS:   s.UseTLS,
		Timeout:  s.Timeout,
	}
}

// Path is the exposition endpoint, "/metrics" when unset.
func (c PrometheusConfig) Path() string {
	if path := strings.TrimSpace(c.Endpoint); path != "" {
		return path
	}
	return "/metrics"
}
