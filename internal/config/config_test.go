package config

import (
	"testing"
	"time"
)

func TestLoadReadsBotSettings(t *testing.T) {
	t.Setenv("ADMINS", "@alice, bob ,,")
	t.Setenv("STAFF_CHAT_ID", " -100123 ")
	t.Setenv("CREDIT_API_TIMEOUT_SECONDS", "3")
	t.Setenv("BOT_MAX_CONCURRENCY", "not-a-number")

	cfg := Load()

	if len(cfg.Admins) != 2 || cfg.Admins[0] != "alice" || cfg.Admins[1] != "bob" {
		t.Fatalf("unexpected admins: %#v", cfg.Admins)
	}
	if cfg.StaffChatID != "-100123" {
		t.Fatalf("expected trimmed staff chat id, got %q", cfg.StaffChatID)
	}
	if cfg.CreditAPITimeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.CreditAPITimeout)
	}
	if cfg.BotMaxConcurrency != 64 {
		t.Fatalf("expected default concurrency, got %d", cfg.BotMaxConcurrency)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CREDIT_API_PATH", "/credit")
	cfg := Load()
	if cfg.CreditAPIPath != "/credit" {
		t.Fatalf("unexpected credit path %q", cfg.CreditAPIPath)
	}
	if cfg.CurrencySymbol == "" {
		t.Fatal("expected a currency symbol default")
	}
}
