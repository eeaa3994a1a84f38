package engine

import (
	"math"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// ATRConfig tunes the synthetic-candle true-range engine.
type ATRConfig struct {
	CandleSeconds float64 // candle duration, default 5s
	Period        int     // true-range history length, default 14
	BaselineDecay float64 // slow EMA decay for the ATR baseline, default 0.995
	ContractBelow float64 // atr/baseline ratio under which vol is contracting, default 0.7
	ExpandAbove   float64 // ratio above which vol is expanding, default 1.5
}

func (c ATRConfig) withDefaults() ATRConfig {
	if c.CandleSeconds <= 0 {
		c.CandleSeconds = 5.0
	}
	if c.Period <= 0 {
		c.Period = 14
	}
	if c.BaselineDecay <= 0 || c.BaselineDecay >= 1 {
		c.BaselineDecay = 0.995
	}
	if c.ContractBelow <= 0 {
		c.ContractBelow = 0.7
	}
	if c.ExpandAbove <= c.ContractBelow {
		c.ExpandAbove = 1.5
	}
	return c
}

// ATRRegime builds fixed-duration synthetic candles from the tick stream and
// measures true-range volatility against a slow baseline. Tick-by-tick ranges
// are micro-noise; candles of a few seconds capture volatility that matters.
// Signal is positive when volatility is expanding.
type ATRRegime struct {
	cfg ATRConfig

	candleStart int64 // ms, 0 means no open candle
	open        float64
	high        float64
	low         float64
	close       float64
	prevClose   float64

	trs      []float64
	atr      float64
	baseline float64
}

func NewATRRegime(cfg ATRConfig) *ATRRegime {
	cfg = cfg.withDefaults()
	return &ATRRegime{cfg: cfg, trs: make([]float64, 0, cfg.Period)}
}

func (e *ATRRegime) Analyze(tick model.Tick, _ Context) model.EngineResult {
	if !tick.Valid() {
		return e.holdResult(true)
	}

	price := tick.Price
	now := tick.Timestamp

	if e.candleStart == 0 {
		e.openCandle(now, price)
		e.prevClose = price
		return model.EngineResult{
			Signal: 0,
			Warmup: true,
			Fields: map[string]any{"atr": 0.0, "regime": "warmup"},
		}
	}

	e.high = math.Max(e.high, price)
	e.low = math.Min(e.low, price)
	e.close = price

	// Backward or duplicate timestamps continue the open candle.
	elapsed := now - e.candleStart
	if float64(elapsed) < e.cfg.CandleSeconds*1000 {
		return e.holdResult(false)
	}

	tr := math.Max(e.high-e.low,
		math.Max(math.Abs(e.high-e.prevClose), math.Abs(e.low-e.prevClose)))
	e.trs = append(e.trs, tr)
	if len(e.trs) > e.cfg.Period {
		e.trs = e.trs[1:]
	}
	e.atr = mean(e.trs)

	if e.baseline == 0 {
		e.baseline = e.atr
	} else {
		e.baseline = e.baseline*e.cfg.BaselineDecay + e.atr*(1-e.cfg.BaselineDecay)
	}

	e.prevClose = e.close
	e.openCandle(now, price)

	signal := 0.0
	if e.baseline > 0 {
		signal = clamp(e.atr/e.baseline-1.0, -1, 1)
	}

	return model.EngineResult{
		Signal: round3(signal),
		Fields: map[string]any{
			"atr":          e.atr,
			"atr_baseline": e.baseline,
			"regime":       e.regime(),
			"tr":           tr,
		},
	}
}

// holdResult is the mid-candle (and malformed-tick) response: no directional
// view until the candle closes.
func (e *ATRRegime) holdResult(warmup bool) model.EngineResult {
	return model.EngineResult{
		Signal: 0,
		Warmup: warmup || len(e.trs) == 0,
		Fields: map[string]any{
			"atr":    e.atr,
			"regime": e.regime(),
		},
	}
}

func (e *ATRRegime) openCandle(start int64, price float64) {
	e.candleStart = start
	e.open = price
	e.high = price
	e.low = price
	e.close = price
}

func (e *ATRRegime) regime() string {
	if len(e.trs) == 0 {
		return "warmup"
	}
	if e.baseline <= 0 {
		// A flat market drives both ATR and baseline to zero; the ratio is
		// undefined but the regime is plainly not expanding or contracting.
		return "normal"
	}
	ratio := e.atr / e.baseline
	switch {
	case ratio < e.cfg.ContractBelow:
		return "contracting"
	case ratio > e.cfg.ExpandAbove:
		return "expanding"
	}
	return "normal"
}

func (e *ATRRegime) Reset() {
	e.candleStart = 0
	e.open, e.high, e.low, e.close, e.prevClose = 0, 0, 0, 0, 0
	e.trs = e.trs[:0]
	e.atr = 0
	e.baseline = 0
}
