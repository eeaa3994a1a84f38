package engine

import (
	"math"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// VolatilityConfig tunes the realized-volatility regime classifier.
type VolatilityConfig struct {
	Window        int     // return window, default 50
	MinSamples    int     // returns needed before classifying, default 5
	LowThreshold  float64 // stdev below which regime is low, default 5e-5
	HighThreshold float64 // stdev above which regime is high, default 2e-4
}

func (c VolatilityConfig) withDefaults() VolatilityConfig {
	if c.Window <= 0 {
		c.Window = 50
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 5
	}
	if c.LowThreshold <= 0 {
		c.LowThreshold = 0.00005
	}
	if c.HighThreshold <= c.LowThreshold {
		c.HighThreshold = 0.0002
	}
	return c
}

// VolatilityRegime classifies realized volatility from per-tick returns.
// Low volatility makes absorptions more meaningful (mild positive bias), high
// volatility makes flow signals less trustworthy (mild negative bias).
type VolatilityRegime struct {
	cfg       VolatilityConfig
	lastPrice float64
	returns   []float64
	spreads   []float64
}

func NewVolatilityRegime(cfg VolatilityConfig) *VolatilityRegime {
	cfg = cfg.withDefaults()
	return &VolatilityRegime{
		cfg:     cfg,
		returns: make([]float64, 0, cfg.Window),
		spreads: make([]float64, 0, cfg.Window),
	}
}

func (e *VolatilityRegime) Analyze(tick model.Tick, _ Context) model.EngineResult {
	if !tick.Valid() {
		return model.NeutralResult()
	}

	if e.lastPrice <= 0 {
		e.lastPrice = tick.Price
		return warmupRegime(0)
	}

	ret := (tick.Price - e.lastPrice) / e.lastPrice
	e.lastPrice = tick.Price
	e.returns = append(e.returns, ret)
	if len(e.returns) > e.cfg.Window {
		e.returns = e.returns[1:]
	}
	if tick.Spread > 0 {
		e.spreads = append(e.spreads, tick.Spread)
		if len(e.spreads) > e.cfg.Window {
			e.spreads = e.spreads[1:]
		}
	}

	if len(e.returns) < e.cfg.MinSamples {
		return warmupRegime(len(e.returns))
	}

	std := stddev(e.returns)

	regime := "medium"
	signal := 0.0
	switch {
	case std < e.cfg.LowThreshold:
		regime = "low"
		signal = 0.3
	case std > e.cfg.HighThreshold:
		regime = "high"
		signal = -0.3
	}

	fields := map[string]any{
		"volatility": std * 10000, // bps
		"regime":     regime,
	}
	if len(e.spreads) > 0 {
		fields["avg_spread"] = mean(e.spreads)
	}

	return model.EngineResult{Signal: signal, Fields: fields}
}

func (e *VolatilityRegime) Reset() {
	e.lastPrice = 0
	e.returns = e.returns[:0]
	e.spreads = e.spreads[:0]
}

func warmupRegime(samples int) model.EngineResult {
	return model.EngineResult{
		Signal: 0,
		Warmup: true,
		Fields: map[string]any{
			"volatility": 0.0,
			"regime":     "warmup",
			"samples":    samples,
		},
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stddev(vals []float64) float64 {
	m := mean(vals)
	variance := 0.0
	for _, v := range vals {
		d := v - m
		variance += d * d
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance)
}
