package lifecycle

import (
	"errors"
	"strings"
)

var (
	ErrTriggerExpressionRequired = errors.New("lifecycle config: trigger expression is required when the cron trigger is enabled")
	ErrDefaultLocaleRequired     = errors.New("lifecycle config: default locale is required when translations are enabled")
	ErrLoggingProviderRequired   = errors.New("lifecycle config: logging provider is required when logging is enabled")
	ErrLoggingProviderUnknown    = errors.New("lifecycle config: logging provider is invalid")
	ErrLoggingLevelInvalid       = errors.New("lifecycle config: logging level is invalid")
	ErrLoggingFormatInvalid      = errors.New("lifecycle config: logging format is invalid")
)

// Config aggregates feature flags and bindings for the scheduler module.
// Fields intentionally use simple types so host applications can extend them.
type Config struct {
	Enabled       bool
	DefaultLocale string
	Trigger       TriggerConfig
	Logging       LoggingConfig
	Features      Features
}

// TriggerConfig captures the cron trigger host settings.
type TriggerConfig struct {
	// Expression is a cron spec or @every duration understood by robfig/cron.
	Expression string
	// Timezone is an IANA zone name; empty means the process local zone.
	Timezone string
}

// Features toggles module functionality. Revisions gates revision creation
// globally; bundle policies can only opt in while it is on.
type Features struct {
	Revisions    bool
	Translations bool
	CronTrigger  bool
	Logger       bool
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns a configuration with the common defaults applied.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		DefaultLocale: "en",
		Trigger: TriggerConfig{
			Expression: "@every 1m",
		},
		Features: Features{
			Revisions:    true,
			Translations: true,
		},
	}
}

// Validate checks cross-field consistency before the module boots.
func (c Config) Validate() error {
	if c.Features.Translations && strings.TrimSpace(c.DefaultLocale) == "" {
		return ErrDefaultLocaleRequired
	}
	if c.Features.CronTrigger && strings.TrimSpace(c.Trigger.Expression) == "" {
		return ErrTriggerExpressionRequired
	}
	if c.Features.Logger {
		switch strings.ToLower(strings.TrimSpace(c.Logging.Provider)) {
		case "":
			return ErrLoggingProviderRequired
		case "gologger", "noop":
		default:
			return ErrLoggingProviderUnknown
		}
		switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
		case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
		default:
			return ErrLoggingLevelInvalid
		}
		switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
		case "", "json", "console", "pretty":
		default:
			return ErrLoggingFormatInvalid
		}
	}
	return nil
}
