package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Elloy123/imbalance-chart27/internal/engine"
	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// Config holds the order-flow service configuration.
type Config struct {
	// Server
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	WebDir   string `env:"WEB_DIR" envDefault:"web"`

	// Market data
	Symbol string `env:"SYMBOL" envDefault:"BTCUSDT"`
	Feed   string `env:"FEED" envDefault:"binance"` // binance | sim

	// Engines
	Engines    []string `env:"ENGINES" envSeparator:"," envDefault:"tick_velocity,spread_weight,micro_cluster,atr_normalize,imbalance_detector"`
	WeightMode string   `env:"WEIGHT_MODE" envDefault:"price_weighted"`

	// Engine tuning
	VelocityWindowSec  float64 `env:"VELOCITY_WINDOW_SEC" envDefault:"1.0"`
	VolatilityWindow   int     `env:"VOLATILITY_WINDOW" envDefault:"50"`
	ATRCandleSec       float64 `env:"ATR_CANDLE_SEC" envDefault:"5"`
	ATRPeriod          int     `env:"ATR_PERIOD" envDefault:"14"`
	AbsorptionWindowMS int64   `env:"ABSORPTION_WINDOW_MS" envDefault:"100"`
	ImbalanceRatio     float64 `env:"IMBALANCE_RATIO" envDefault:"3.0"`
	ImbalanceWindow    int     `env:"IMBALANCE_WINDOW" envDefault:"50"`

	// Websocket replay
	ReplayBuffer int `env:"REPLAY_BUFFER" envDefault:"500"`

	// Snapshot cache (disabled when the URL is empty)
	SnapshotRedisURL    string `env:"SNAPSHOT_REDIS_URL"`
	RedisPassword       string `env:"REDIS_PASSWORD"`
	SnapshotTTLSec      int    `env:"SNAPSHOT_TTL_SEC" envDefault:"300"`
	SnapshotIntervalSec int    `env:"SNAPSHOT_INTERVAL_SEC" envDefault:"1"`

	// Computed durations (not from env)
	SnapshotTTL      time.Duration `env:"-"`
	SnapshotInterval time.Duration `env:"-"`

	// Observability
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	for i := range cfg.Engines {
		cfg.Engines[i] = strings.TrimSpace(cfg.Engines[i])
	}
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))

	cfg.SnapshotTTL = time.Duration(cfg.SnapshotTTLSec) * time.Second
	cfg.SnapshotInterval = time.Duration(cfg.SnapshotIntervalSec) * time.Second

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol must be configured")
	}

	if c.Feed != "binance" && c.Feed != "sim" {
		return fmt.Errorf("invalid feed: %s (expected binance or sim)", c.Feed)
	}

	if len(c.Engines) == 0 {
		return fmt.Errorf("at least one engine must be configured")
	}
	for _, name := range c.Engines {
		if !engine.KnownEngine(name) {
			return fmt.Errorf("unknown engine: %s", name)
		}
	}

	if !model.ValidWeightMode(model.WeightMode(c.WeightMode)) {
		return fmt.Errorf("invalid weight mode: %s", c.WeightMode)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.ReplayBuffer <= 0 {
		return fmt.Errorf("replay buffer must be positive")
	}

	if c.SnapshotRedisURL != "" {
		if c.SnapshotTTL < time.Second {
			return fmt.Errorf("snapshot TTL must be at least 1 second")
		}
		if c.SnapshotInterval < time.Second {
			return fmt.Errorf("snapshot interval must be at least 1 second")
		}
	}

	return nil
}

// EngineConfig translates the flat env knobs into the engine configuration.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Engines:    c.Engines,
		Symbol:     c.Symbol,
		WeightMode: model.WeightMode(c.WeightMode),
		Velocity: engine.VelocityConfig{
			WindowSeconds: c.VelocityWindowSec,
		},
		Volatility: engine.VolatilityConfig{
			Window: c.VolatilityWindow,
		},
		ATR: engine.ATRConfig{
			CandleSeconds: c.ATRCandleSec,
			Period:        c.ATRPeriod,
		},
		Absorption: engine.AbsorptionConfig{
			WindowMS: c.AbsorptionWindowMS,
		},
		Imbalance: engine.ImbalanceConfig{
			ImbalanceRatio: c.ImbalanceRatio,
			WindowTrades:   c.ImbalanceWindow,
		},
	}
}
