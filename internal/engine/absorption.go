package engine

import "github.com/Elloy123/imbalance-chart27/internal/model"

// AbsorptionConfig tunes the micro-window absorption detector.
type AbsorptionConfig struct {
	WindowMS        int64   // micro-window duration, default 100ms
	MinTrades       int     // trades required before a window may close, default 3
	DominanceRatio  float64 // opposing/with-trend volume ratio for absorption, default 1.5
	VolThresholdPct float64 // fraction of avg window volume below which windows are skipped, default 0.5
	HistorySize     int     // closed windows kept for the adaptive threshold, default 100
	MinHistory      int     // windows needed before the threshold activates, default 5
}

func (c AbsorptionConfig) withDefaults() AbsorptionConfig {
	if c.WindowMS <= 0 {
		c.WindowMS = 100
	}
	if c.MinTrades <= 0 {
		c.MinTrades = 3
	}
	if c.DominanceRatio <= 0 {
		c.DominanceRatio = 1.5
	}
	if c.VolThresholdPct <= 0 {
		c.VolThresholdPct = 0.5
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 100
	}
	if c.MinHistory <= 0 {
		c.MinHistory = 5
	}
	return c
}

type windowTrade struct {
	price  float64
	ts     int64
	side   model.Side
	volume float64 // weighted
}

// AbsorptionDetector clusters trades into fixed-duration micro-windows and
// flags delta-vs-price divergence: price moving one way while the opposing
// side's volume dominates means resting orders are absorbing the aggression.
// The volume threshold adapts to the mean of recent window volumes.
type AbsorptionDetector struct {
	cfg     AbsorptionConfig
	weigher Weigher

	buffer      []windowTrade
	windowStart int64
	lastPrice   float64

	volumes     []float64 // total volume of recent closed windows
	absorptions int
	windows     int
	last        *model.EngineResult
}

func NewAbsorptionDetector(cfg AbsorptionConfig, mode model.WeightMode) *AbsorptionDetector {
	return &AbsorptionDetector{
		cfg:     cfg.withDefaults(),
		weigher: NewWeigher(mode),
	}
}

func (e *AbsorptionDetector) SetWeightMode(mode model.WeightMode) {
	e.weigher = NewWeigher(mode)
}

func (e *AbsorptionDetector) Analyze(tick model.Tick, ctx Context) model.EngineResult {
	if !tick.Valid() {
		return e.lastOrPending()
	}

	if e.windowStart == 0 {
		e.windowStart = tick.Timestamp
	}

	volume := tick.Volume
	if volume <= 0 {
		volume = 1.0
	}
	volume *= e.weigher.Weight(tick, e.lastPrice)
	e.lastPrice = tick.Price

	e.buffer = append(e.buffer, windowTrade{
		price:  tick.Price,
		ts:     tick.Timestamp,
		side:   tick.Side,
		volume: volume,
	})

	elapsed := tick.Timestamp - e.windowStart
	if elapsed < e.cfg.WindowMS || len(e.buffer) < e.cfg.MinTrades {
		return e.lastOrPending()
	}

	result := e.closeWindow()
	e.buffer = e.buffer[:0]
	e.windowStart = tick.Timestamp
	e.last = &result
	return result
}

// closeWindow evaluates the buffered trades as one micro-cluster.
func (e *AbsorptionDetector) closeWindow() model.EngineResult {
	var buyVol, sellVol float64
	for _, t := range e.buffer {
		switch t.side {
		case model.SideBuy:
			buyVol += t.volume
		case model.SideSell:
			sellVol += t.volume
		}
	}
	totalVol := buyVol + sellVol
	priceChange := e.buffer[len(e.buffer)-1].price - e.buffer[0].price
	tradeCount := len(e.buffer)

	avgVol := e.adaptiveThreshold()

	isAbsorption := false
	absorptionType := model.AbsorptionNone
	strength := 0.0

	if totalVol > 0 && priceChange != 0 && totalVol > avgVol*e.cfg.VolThresholdPct {
		switch {
		case priceChange > 0 && sellVol > buyVol:
			// Price rose against dominant selling: buyers absorbed it.
			ratio := sellVol / floorVol(buyVol)
			if ratio >= e.cfg.DominanceRatio {
				isAbsorption = true
				absorptionType = model.AbsorptionBuy
				strength = ratio
			}
		case priceChange < 0 && buyVol > sellVol:
			ratio := buyVol / floorVol(sellVol)
			if ratio >= e.cfg.DominanceRatio {
				isAbsorption = true
				absorptionType = model.AbsorptionSell
				strength = ratio
			}
		}
	}

	e.windows++
	e.volumes = append(e.volumes, totalVol)
	if len(e.volumes) > e.cfg.HistorySize {
		e.volumes = e.volumes[1:]
	}

	signal := 0.0
	if isAbsorption {
		e.absorptions++
		signal = clamp(strength/3.0, 0, 1)
		if absorptionType == model.AbsorptionSell {
			signal = -signal
		}
	}

	return model.EngineResult{
		Signal: round3(signal),
		Fields: map[string]any{
			"is_absorption":       isAbsorption,
			"absorption_type":     absorptionType,
			"absorption_strength": strength,
			"buy_volume":          buyVol,
			"sell_volume":         sellVol,
			"price_change":        priceChange,
			"trade_count":         tradeCount,
			"total_absorptions":   e.absorptions,
		},
	}
}

// adaptiveThreshold is the mean volume of recent windows, zero until enough
// history exists (no minimum threshold early on).
func (e *AbsorptionDetector) adaptiveThreshold() float64 {
	if len(e.volumes) < e.cfg.MinHistory {
		return 0
	}
	return mean(e.volumes)
}

// lastOrPending returns the previous window's analysis while the current one
// is still accumulating.
func (e *AbsorptionDetector) lastOrPending() model.EngineResult {
	if e.last != nil {
		return *e.last
	}
	return model.EngineResult{
		Signal: 0,
		Warmup: true,
		Fields: map[string]any{
			"is_absorption": false,
			"trade_count":   len(e.buffer),
		},
	}
}

// floorVol guards ratio division against near-empty opposing volume.
func floorVol(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}

func (e *AbsorptionDetector) Reset() {
	e.buffer = e.buffer[:0]
	e.windowStart = 0
	e.lastPrice = 0
	e.volumes = e.volumes[:0]
	e.absorptions = 0
	e.windows = 0
	e.last = nil
}
