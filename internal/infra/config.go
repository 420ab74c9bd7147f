package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"dex_sim/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 DEXSIM_* 환경 변수로 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Simulation struct {
		TickIntervalMS int                  `yaml:"tick_interval_ms"`
		DefaultPair    string               `yaml:"default_pair"`
		Seed           uint64               `yaml:"seed"`
		HistorySize    int                  `yaml:"history_size"`
		Pairs          []domain.TradingPair `yaml:"pairs"`
		Venues         []domain.Venue       `yaml:"venues"`
	} `yaml:"simulation"`

	Arbitrage struct {
		MinProfit decimal.Decimal `yaml:"min_profit"`
		TradeSize decimal.Decimal `yaml:"trade_size"`
	} `yaml:"arbitrage"`

	MEV struct {
		PoolSize        int    `yaml:"pool_size"`
		IntervalMS      int    `yaml:"interval_ms"`
		DefaultStrategy string `yaml:"default_strategy"`
	} `yaml:"mev"`

	Paper struct {
		StartingBalance decimal.Decimal `yaml:"starting_balance"`
	} `yaml:"paper"`

	Feed struct {
		ListenAddr   string  `yaml:"listen_addr"`
		CommandRate  float64 `yaml:"command_rate"`
		CommandBurst int     `yaml:"command_burst"`
	} `yaml:"feed"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the built-in configuration used when no file is given.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "dex-sim"
	cfg.App.Version = "0.1.0"
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills every unset field.
func (c *Config) applyDefaults() {
	if c.Simulation.TickIntervalMS == 0 {
		c.Simulation.TickIntervalMS = 2000
	}
	if len(c.Simulation.Pairs) == 0 {
		c.Simulation.Pairs = domain.DefaultPairs()
	}
	if len(c.Simulation.Venues) == 0 {
		c.Simulation.Venues = domain.DefaultVenues()
	}
	for i := range c.Simulation.Venues {
		if tier, err := domain.ParseLiquidityTier(string(c.Simulation.Venues[i].Liquidity)); err == nil {
			c.Simulation.Venues[i].Liquidity = tier
		}
	}
	if c.Simulation.DefaultPair == "" {
		c.Simulation.DefaultPair = c.Simulation.Pairs[0].Symbol
	}
	if c.Simulation.HistorySize == 0 {
		c.Simulation.HistorySize = 50
	}
	if c.Arbitrage.MinProfit.IsZero() {
		c.Arbitrage.MinProfit = decimal.RequireFromString("0.5")
	}
	if c.Arbitrage.TradeSize.IsZero() {
		c.Arbitrage.TradeSize = decimal.NewFromInt(1)
	}
	if c.MEV.PoolSize == 0 {
		c.MEV.PoolSize = 20
	}
	if c.MEV.IntervalMS == 0 {
		c.MEV.IntervalMS = 1000
	}
	if c.MEV.DefaultStrategy == "" {
		c.MEV.DefaultStrategy = string(domain.StrategySandwich)
	}
	if c.Paper.StartingBalance.IsZero() {
		c.Paper.StartingBalance = decimal.NewFromInt(100000)
	}
	if c.Feed.ListenAddr == "" {
		c.Feed.ListenAddr = ":8080"
	}
	if c.Feed.CommandRate == 0 {
		c.Feed.CommandRate = 5
	}
	if c.Feed.CommandBurst == 0 {
		c.Feed.CommandBurst = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// .env 파일은 선택 사항
	_ = godotenv.Load()
	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Simulation.TickIntervalMS < 100 {
		return &domain.ConfigError{Field: "simulation.tick_interval_ms", Err: fmt.Errorf("must be at least 100, got %d", c.Simulation.TickIntervalMS)}
	}
	if c.Simulation.HistorySize <= 0 {
		return &domain.ConfigError{Field: "simulation.history_size", Err: errors.New("must be positive")}
	}

	seen := make(map[string]bool, len(c.Simulation.Pairs))
	for _, p := range c.Simulation.Pairs {
		if p.BasePrice <= 0 {
			return &domain.ConfigError{Field: "simulation.pairs", Err: fmt.Errorf("%s: base price must be positive", p.Symbol)}
		}
		if !strings.Contains(p.Symbol, "/") {
			return &domain.ConfigError{Field: "simulation.pairs", Err: fmt.Errorf("%s: symbol must be BASE/QUOTE", p.Symbol)}
		}
		seen[p.Symbol] = true
	}
	if !seen[c.Simulation.DefaultPair] {
		return &domain.ConfigError{Field: "simulation.default_pair", Err: fmt.Errorf("%s: %w", c.Simulation.DefaultPair, domain.ErrUnknownPair)}
	}

	for _, v := range c.Simulation.Venues {
		if _, err := domain.ParseLiquidityTier(string(v.Liquidity)); err != nil {
			return &domain.ConfigError{Field: "simulation.venues", Err: fmt.Errorf("%s: %w", v.Name, err)}
		}
		if v.Fee < 0 || v.Fee >= 1 {
			return &domain.ConfigError{Field: "simulation.venues", Err: fmt.Errorf("%s: fee %v out of range", v.Name, v.Fee)}
		}
	}

	if c.Arbitrage.MinProfit.IsNegative() {
		return &domain.ConfigError{Field: "arbitrage.min_profit", Err: errors.New("must not be negative")}
	}
	if !c.Arbitrage.TradeSize.IsPositive() {
		return &domain.ConfigError{Field: "arbitrage.trade_size", Err: errors.New("must be positive")}
	}
	if c.MEV.PoolSize <= 0 {
		return &domain.ConfigError{Field: "mev.pool_size", Err: errors.New("must be positive")}
	}
	if c.MEV.IntervalMS < 100 {
		return &domain.ConfigError{Field: "mev.interval_ms", Err: fmt.Errorf("must be at least 100, got %d", c.MEV.IntervalMS)}
	}
	switch domain.StrategyID(strings.ToUpper(c.MEV.DefaultStrategy)) {
	case domain.StrategySandwich, domain.StrategyFrontrunning, domain.StrategyArbitrage:
	default:
		return &domain.ConfigError{Field: "mev.default_strategy", Err: fmt.Errorf("%s: %w", c.MEV.DefaultStrategy, domain.ErrUnknownStrategy)}
	}
	if c.Feed.CommandRate <= 0 || c.Feed.CommandBurst <= 0 {
		return &domain.ConfigError{Field: "feed.command_rate", Err: errors.New("rate and burst must be positive")}
	}

	return nil
}

// TickInterval returns the simulation tick as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Simulation.TickIntervalMS) * time.Millisecond
}

// MEVInterval returns the MEV step interval as a duration.
func (c *Config) MEVInterval() time.Duration {
	return time.Duration(c.MEV.IntervalMS) * time.Millisecond
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("DEXSIM_LISTEN_ADDR"); addr != "" {
		cfg.Feed.ListenAddr = addr
	}
	if level := os.Getenv("DEXSIM_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if pair := os.Getenv("DEXSIM_DEFAULT_PAIR"); pair != "" {
		cfg.Simulation.DefaultPair = pair
	}
	if v := os.Getenv("DEXSIM_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
	if v := os.Getenv("DEXSIM_TICK_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.TickIntervalMS = ms
		}
	}
	if v := os.Getenv("DEXSIM_MIN_PROFIT"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.Arbitrage.MinProfit = d
		}
	}
}
