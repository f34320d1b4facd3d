package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.Notifier.PollIntervalSeconds != 10 {
		t.Fatalf("poll interval = %d, want 10", cfg.Notifier.PollIntervalSeconds)
	}
	if cfg.Notifier.WarnBeforeMinutes != 5 {
		t.Fatalf("warn threshold = %d, want 5", cfg.Notifier.WarnBeforeMinutes)
	}
	if len(cfg.Notifier.ExtensionMinutes) != 3 {
		t.Fatalf("extension choices = %v", cfg.Notifier.ExtensionMinutes)
	}
	if got := cfg.NotifierPollInterval(); got != 10*time.Second {
		t.Fatalf("NotifierPollInterval = %v", got)
	}
	if got := cfg.NotifierWarnThreshold(); got != 5*time.Minute {
		t.Fatalf("NotifierWarnThreshold = %v", got)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := &Config{}
	err := Normalize(cfg)
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("err = %v, want token requirement", err)
	}
}

func TestNormalizeRunModeAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want alias resolved to longpoll", cfg.Telegram.RunMode)
	}
}

func TestNormalizeWebhookRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("webhook mode without url/listen/port must fail")
	}

	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeRejectsBadExtensionMinutes(t *testing.T) {
	cfg := validConfig()
	cfg.Notifier.ExtensionMinutes = []int{5, -10}
	if err := Normalize(cfg); err == nil {
		t.Fatal("negative extension choice must fail")
	}
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "message"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclusions = %v, want canonicalized", cfg.RateLimit.ExcludeUpdates)
	}

	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	if err := Normalize(cfg); err == nil {
		t.Fatal("unknown exclusion kind must fail")
	}
}
