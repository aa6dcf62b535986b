package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerAddress != ":8080" {
		t.Errorf("expected default server address :8080, got %s", cfg.ServerAddress)
	}
	if !cfg.HighAmountThreshold.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected default threshold 10000, got %s", cfg.HighAmountThreshold)
	}
	if cfg.RapidWindow != 5*time.Minute {
		t.Errorf("expected default rapid window 5m, got %s", cfg.RapidWindow)
	}
	if cfg.RapidMaxCount != 5 {
		t.Errorf("expected default rapid max count 5, got %d", cfg.RapidMaxCount)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FRAUD_HIGH_AMOUNT_THRESHOLD", "2500.50")
	t.Setenv("FRAUD_RAPID_WINDOW", "90s")
	t.Setenv("FRAUD_RAPID_MAX_TXNS", "3")
	t.Setenv("REDIS_DB", "2")

	cfg := Load()

	if !cfg.HighAmountThreshold.Equal(decimal.RequireFromString("2500.50")) {
		t.Errorf("expected threshold 2500.50, got %s", cfg.HighAmountThreshold)
	}
	if cfg.RapidWindow != 90*time.Second {
		t.Errorf("expected rapid window 90s, got %s", cfg.RapidWindow)
	}
	if cfg.RapidMaxCount != 3 {
		t.Errorf("expected rapid max count 3, got %d", cfg.RapidMaxCount)
	}
	if cfg.RedisDB != 2 {
		t.Errorf("expected redis db 2, got %d", cfg.RedisDB)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("FRAUD_HIGH_AMOUNT_THRESHOLD", "lots")
	t.Setenv("FRAUD_RAPID_WINDOW", "soon")

	cfg := Load()

	if !cfg.HighAmountThreshold.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected fallback threshold 10000, got %s", cfg.HighAmountThreshold)
	}
	if cfg.RapidWindow != 5*time.Minute {
		t.Errorf("expected fallback rapid window 5m, got %s", cfg.RapidWindow)
	}
}
