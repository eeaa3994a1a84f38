// Package engine implements the stateful per-tick analysis engines and the
// orchestrator that drives them. All engines are pure and synchronous: one
// Analyze call per tick, no I/O, state bounded by the configured windows.
// Window and candle arithmetic is driven by tick timestamps, never the wall
// clock, so replayed streams analyze identically.
package engine

import (
	"fmt"
	"math"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// Context is the read-only per-call state the orchestrator derives for its
// engines.
type Context struct {
	TickIndex int64
	LastPrice float64
	Symbol    string
}

// Engine consumes one tick plus context and returns its analysis. Reset
// returns the engine to its construction-time state (symbol switch).
type Engine interface {
	Analyze(tick model.Tick, ctx Context) model.EngineResult
	Reset()
}

// weightModeAware is implemented by engines that value ticks through a
// Weigher strategy.
type weightModeAware interface {
	SetWeightMode(mode model.WeightMode)
}

// symbolAware is implemented by engines whose parameters scale with the
// instrument (footprint price step).
type symbolAware interface {
	Reconfigure(spec model.MarketSpec)
}

// Config bundles the orchestrator construction parameters. Zero values in the
// per-engine sections mean "use defaults".
type Config struct {
	Engines    []string
	Symbol     string
	WeightMode model.WeightMode

	Velocity   VelocityConfig
	Volatility VolatilityConfig
	ATR        ATRConfig
	Absorption AbsorptionConfig
	Imbalance  ImbalanceConfig
}

// Registry of engine constructors, keyed by the wire-visible engine id.
// Validated eagerly at orchestrator construction: an unknown id is a
// configuration error, not a per-tick one.
var registry = map[string]func(cfg Config) Engine{
	EngineTickVelocity:      func(cfg Config) Engine { return NewTickVelocity(cfg.Velocity) },
	EngineSpreadWeight:      func(cfg Config) Engine { return NewVolatilityRegime(cfg.Volatility) },
	EngineMicroCluster:      func(cfg Config) Engine { return NewAbsorptionDetector(cfg.Absorption, cfg.WeightMode) },
	EngineATRNormalize:      func(cfg Config) Engine { return NewATRRegime(cfg.ATR) },
	EngineImbalanceDetector: func(cfg Config) Engine { return NewImbalanceStacking(cfg.Imbalance, cfg.WeightMode) },
}

// Engine ids.
const (
	EngineTickVelocity      = "tick_velocity"
	EngineSpreadWeight      = "spread_weight"
	EngineMicroCluster      = "micro_cluster"
	EngineATRNormalize      = "atr_normalize"
	EngineImbalanceDetector = "imbalance_detector"
)

// registryOrder fixes the order AllEngines reports descriptors in.
var registryOrder = []string{
	EngineTickVelocity,
	EngineSpreadWeight,
	EngineMicroCluster,
	EngineATRNormalize,
	EngineImbalanceDetector,
}

var engineInfo = map[string]model.EngineDescriptor{
	EngineTickVelocity: {
		ID:          EngineTickVelocity,
		Name:        "Trade Velocity",
		Description: "Detects trade bursts: arrival rate vs adaptive baseline",
	},
	EngineSpreadWeight: {
		ID:          EngineSpreadWeight,
		Name:        "Volatility Regime",
		Description: "Realized return volatility regime to contextualize signals",
	},
	EngineMicroCluster: {
		ID:          EngineMicroCluster,
		Name:        "Micro Absorption",
		Description: "Delta-vs-price divergence inside 100ms trade windows",
	},
	EngineATRNormalize: {
		ID:          EngineATRNormalize,
		Name:        "Synthetic-Candle ATR",
		Description: "True-range volatility over fixed-duration candles",
	},
	EngineImbalanceDetector: {
		ID:          EngineImbalanceDetector,
		Name:        "Imbalance Stacking",
		Description: "Diagonal footprint imbalances stacked across price levels",
	},
}

// DefaultEngines is the full engine set in registration order.
func DefaultEngines() []string {
	out := make([]string, len(registryOrder))
	copy(out, registryOrder)
	return out
}

// KnownEngine reports whether id names a registered engine.
func KnownEngine(id string) bool {
	_, ok := registry[id]
	return ok
}

// ConfigurationError marks a fatal construction-time problem (unknown engine
// name, invalid parameter).
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return e.msg }

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// round3 trims signals to the precision the wire format carries.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
