package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.TickInterval != 3*time.Second {
		t.Errorf("expected default tick interval 3s, got %s", cfg.TickInterval)
	}
	if !cfg.StartingCash.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected default starting cash 10000, got %s", cfg.StartingCash)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected default cache TTL 30s, got %s", cfg.CacheTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TICK_INTERVAL", "500ms")
	t.Setenv("STARTING_CASH", "2500.50")
	t.Setenv("DATABASE_URL", "postgres://localhost/capitalplay")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.TickInterval != 500*time.Millisecond {
		t.Errorf("expected tick interval 500ms, got %s", cfg.TickInterval)
	}
	if !cfg.StartingCash.Equal(decimal.NewFromFloat(2500.50)) {
		t.Errorf("expected starting cash 2500.50, got %s", cfg.StartingCash)
	}
	if cfg.DatabaseURL != "postgres://localhost/capitalplay" {
		t.Errorf("unexpected database url %q", cfg.DatabaseURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"PORT", "not-a-number"},
		{"TICK_INTERVAL", "fast"},
		{"TICK_INTERVAL", "-1s"},
		{"STARTING_CASH", "lots"},
		{"STARTING_CASH", "0"},
		{"READ_TIMEOUT", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}
