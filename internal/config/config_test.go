package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "binance", cfg.Feed)
	assert.Equal(t, "price_weighted", cfg.WeightMode)
	assert.Len(t, cfg.Engines, 5)
	assert.Equal(t, 500, cfg.ReplayBuffer)
	assert.Empty(t, cfg.SnapshotRedisURL, "snapshot cache should default off")
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "xauusd")
	t.Setenv("FEED", "sim")
	t.Setenv("ENGINES", "tick_velocity, atr_normalize")
	t.Setenv("WEIGHT_MODE", "equal")
	t.Setenv("SNAPSHOT_TTL_SEC", "120")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "XAUUSD", cfg.Symbol, "symbol should be uppercased")
	assert.Equal(t, "sim", cfg.Feed)
	assert.Equal(t, []string{"tick_velocity", "atr_normalize"}, cfg.Engines,
		"engine names should be trimmed")
	assert.Equal(t, 120.0, cfg.SnapshotTTL.Seconds())
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Feed = "csv"
	assert.ErrorContains(t, cfg.Validate(), "invalid feed")

	cfg = base()
	cfg.Engines = []string{"tick_velocity", "turbo"}
	assert.ErrorContains(t, cfg.Validate(), "unknown engine")

	cfg = base()
	cfg.WeightMode = "volume"
	assert.ErrorContains(t, cfg.Validate(), "invalid weight mode")

	cfg = base()
	cfg.LogLevel = "trace"
	assert.ErrorContains(t, cfg.Validate(), "invalid log level")

	cfg = base()
	cfg.ReplayBuffer = 0
	assert.ErrorContains(t, cfg.Validate(), "replay buffer")

	cfg = base()
	cfg.SnapshotRedisURL = "redis://localhost:6379"
	cfg.SnapshotInterval = 0
	assert.ErrorContains(t, cfg.Validate(), "snapshot interval")
}

func TestEngineConfig(t *testing.T) {
	t.Setenv("SYMBOL", "EURUSD")
	t.Setenv("WEIGHT_MODE", "spread_weighted")
	t.Setenv("ATR_PERIOD", "20")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	ec := cfg.EngineConfig()
	assert.Equal(t, "EURUSD", ec.Symbol)
	assert.Equal(t, model.WeightSpread, ec.WeightMode)
	assert.Equal(t, 20, ec.ATR.Period)
	assert.Len(t, ec.Engines, 5)
}
