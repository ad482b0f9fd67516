package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

// Validate reports every configuration problem that would prevent a safe start.
// Call it after ApplyRuntimeDefaults.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	var errs error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}

	if level := strings.TrimSpace(c.Server.LogLevel); level != "" {
		if _, err := zapcore.ParseLevel(level); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("server.log_level: %w", err))
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Server.LogFormat)) {
	case "", "json", "console":
	default:
		errs = multierr.Append(errs, fmt.Errorf("server.log_format %q must be json or console", c.Server.LogFormat))
	}

	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", "sqlite", "sqlite3", "postgres", "postgresql", "mysql", "mariadb":
	default:
		errs = multierr.Append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}

	if n := SecretByteLength(c.Auth.JWT.Secret); n < minJWTSecretBytes {
		errs = multierr.Append(errs, fmt.Errorf("auth.jwt.secret must be at least %d bytes, got %d", minJWTSecretBytes, n))
	}

	if base := strings.TrimSpace(c.Auth.Verification.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = multierr.Append(errs, fmt.Errorf("auth.verification.base_url %q must be an absolute URL", base))
		}
	}

	limits := map[string]RateLimitWindow{
		"global":           c.Auth.RateLimits.Global,
		"register":         c.Auth.RateLimits.Register,
		"login":            c.Auth.RateLimits.Login,
		"resend":           c.Auth.RateLimits.Resend,
		"resend_per_email": c.Auth.RateLimits.ResendPerEmail,
	}
	for name, limit := range limits {
		if limit.Limit > 0 && limit.Window <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("auth.rate_limits.%s.window must be positive", name))
		}
	}

	if c.Email.SMTP.Enabled && strings.TrimSpace(c.Email.SMTP.Host) == "" {
		errs = multierr.Append(errs, fmt.Errorf("email.smtp.host is required when smtp is enabled"))
	}

	if c.Maintenance.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		for name, spec := range map[string]string{
			"token_schedule": c.Maintenance.TokenSchedule,
			"cache_schedule": c.Maintenance.CacheSchedule,
			"audit_schedule": c.Maintenance.AuditSchedule,
		} {
			if strings.TrimSpace(spec) == "" {
				continue
			}
			if _, err := parser.Parse(spec); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("maintenance.%s: %w", name, err))
			}
		}
	}

	return errs
}
