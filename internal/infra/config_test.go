package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dex_sim/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: dex-sim\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Simulation.DefaultPair != "ETH/USDC" {
		t.Errorf("Expected default pair ETH/USDC, got %s", cfg.Simulation.DefaultPair)
	}
	if len(cfg.Simulation.Venues) != 4 || len(cfg.Simulation.Pairs) != 4 {
		t.Errorf("Expected default venues and pairs, got %d/%d", len(cfg.Simulation.Venues), len(cfg.Simulation.Pairs))
	}
	if cfg.Arbitrage.MinProfit.String() != "0.5" {
		t.Errorf("Expected min profit 0.5, got %s", cfg.Arbitrage.MinProfit)
	}
	if cfg.TickInterval().Milliseconds() != 2000 {
		t.Errorf("Expected 2000ms tick, got %v", cfg.TickInterval())
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
simulation:
  tick_interval_ms: 500
  default_pair: LINK/USDC
  seed: 42
  pairs:
    - symbol: LINK/USDC
      base_token: LINK
      quote_token: USDC
      base_price: 12.5
  venues:
    - name: UniswapV3
      fee: 0.003
      liquidity: High
      color: "#FF007A"
arbitrage:
  min_profit: "0.01"
mev:
  default_strategy: arbitrage
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Simulation.Seed != 42 || cfg.Simulation.TickIntervalMS != 500 {
		t.Errorf("Unexpected simulation config %+v", cfg.Simulation)
	}
	if len(cfg.Simulation.Venues) != 1 || cfg.Simulation.Venues[0].Liquidity != domain.LiquidityHigh {
		t.Errorf("Unexpected venues %+v", cfg.Simulation.Venues)
	}
	if cfg.Arbitrage.MinProfit.String() != "0.01" {
		t.Errorf("Expected min profit 0.01, got %s", cfg.Arbitrage.MinProfit)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "feed:\n  listen_addr: \":9000\"\n")
	t.Setenv("DEXSIM_LISTEN_ADDR", ":7777")
	t.Setenv("DEXSIM_SEED", "99")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Feed.ListenAddr != ":7777" {
		t.Errorf("Expected env listen addr, got %s", cfg.Feed.ListenAddr)
	}
	if cfg.Simulation.Seed != 99 {
		t.Errorf("Expected env seed 99, got %d", cfg.Simulation.Seed)
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"tick too fast", func(c *Config) { c.Simulation.TickIntervalMS = 10 }, "simulation.tick_interval_ms"},
		{"unknown default pair", func(c *Config) { c.Simulation.DefaultPair = "DOGE/USDC" }, "simulation.default_pair"},
		{"bad tier", func(c *Config) { c.Simulation.Venues[0].Liquidity = "Deep" }, "simulation.venues"},
		{"unknown strategy", func(c *Config) { c.MEV.DefaultStrategy = "backrun" }, "mev.default_strategy"},
		{"zero pool", func(c *Config) { c.MEV.PoolSize = -1 }, "mev.pool_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(cfg)

			var cfgErr *domain.ConfigError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Errorf("Expected ConfigError on %s, got %v", tt.field, err)
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}
