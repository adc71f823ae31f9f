package lifecycle

import (
	"errors"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if !cfg.Enabled {
		t.Fatalf("expected scheduler enabled by default")
	}
	if cfg.Trigger.Expression == "" {
		t.Fatalf("expected a default trigger expression")
	}
}

func TestValidateRequiresLocaleForTranslations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLocale = "  "
	if err := cfg.Validate(); !errors.Is(err, ErrDefaultLocaleRequired) {
		t.Fatalf("expected locale error, got %v", err)
	}

	cfg.Features.Translations = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected locale optional without translations, got %v", err)
	}
}

func TestValidateRequiresTriggerExpression(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Features.CronTrigger = true
	cfg.Trigger.Expression = ""
	if err := cfg.Validate(); !errors.Is(err, ErrTriggerExpressionRequired) {
		t.Fatalf("expected trigger error, got %v", err)
	}
}

func TestValidateLoggingProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Features.Logger = true
	if err := cfg.Validate(); !errors.Is(err, ErrLoggingProviderRequired) {
		t.Fatalf("expected provider required, got %v", err)
	}

	cfg.Logging.Provider = "syslog"
	if err := cfg.Validate(); !errors.Is(err, ErrLoggingProviderUnknown) {
		t.Fatalf("expected unknown provider, got %v", err)
	}

	cfg.Logging.Provider = "gologger"
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); !errors.Is(err, ErrLoggingLevelInvalid) {
		t.Fatalf("expected level error, got %v", err)
	}

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); !errors.Is(err, ErrLoggingFormatInvalid) {
		t.Fatalf("expected format error, got %v", err)
	}

	cfg.Logging.Format = "console"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid logging config, got %v", err)
	}
}
