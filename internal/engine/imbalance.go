package engine

import (
	"math"
	"sort"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// ImbalanceConfig tunes the diagonal imbalance stacking detector.
type ImbalanceConfig struct {
	PriceStep      float64 // footprint level size; 0 means take the symbol spec
	ImbalanceRatio float64 // diagonal ratio that flags an imbalance, default 3.0
	WindowTrades   int     // sliding buffer length, default 50
	MinStacking    int     // consecutive imbalances needed for a direction call, default 2
	AnalyzeEvery   int     // new trades between re-analyses of the full buffer, default 10
	MaxReported    int     // imbalance entries carried in the result, default 10
}

func (c ImbalanceConfig) withDefaults() ImbalanceConfig {
	if c.PriceStep <= 0 {
		c.PriceStep = model.DefaultSpec.PriceStep
	}
	if c.ImbalanceRatio <= 0 {
		c.ImbalanceRatio = 3.0
	}
	if c.WindowTrades <= 0 {
		c.WindowTrades = 50
	}
	if c.MinStacking <= 0 {
		c.MinStacking = 2
	}
	if c.AnalyzeEvery <= 0 {
		c.AnalyzeEvery = 10
	}
	if c.MaxReported <= 0 {
		c.MaxReported = 10
	}
	return c
}

// Imbalance is one diagonal disproportion between adjacent footprint levels.
// Ratio is 0 for zero-side imbalances (the opposing level had no volume).
type Imbalance struct {
	Type      string  `json:"type"` // "buy", "sell", "buy_zero", "sell_zero"
	PriceLow  float64 `json:"price_low"`
	PriceHigh float64 `json:"price_high"`
	Ratio     float64 `json:"ratio"`
}

type footprintTrade struct {
	level  float64
	side   model.Side
	weight float64
}

// ImbalanceStacking accumulates a sliding mini-footprint (buy/sell weight per
// discretized price level) and detects diagonal imbalances between adjacent
// levels: aggressive buying at one level dwarfing aggressive selling one level
// up, or the reverse. Runs of same-direction imbalances (stacking) are the
// directional signal. The buffer slides: once full it re-analyzes every
// AnalyzeEvery trades, so windows overlap.
type ImbalanceStacking struct {
	cfg     ImbalanceConfig
	weigher Weigher

	buffer        []footprintTrade
	sinceAnalysis int
	lastPrice     float64
	last          model.EngineResult
}

func NewImbalanceStacking(cfg ImbalanceConfig, mode model.WeightMode) *ImbalanceStacking {
	e := &ImbalanceStacking{
		cfg:     cfg.withDefaults(),
		weigher: NewWeigher(mode),
	}
	e.last = e.emptyResult()
	return e
}

func (e *ImbalanceStacking) SetWeightMode(mode model.WeightMode) {
	e.weigher = NewWeigher(mode)
}

// Reconfigure adopts the symbol's footprint price step on symbol switch.
func (e *ImbalanceStacking) Reconfigure(spec model.MarketSpec) {
	if spec.PriceStep > 0 {
		e.cfg.PriceStep = spec.PriceStep
	}
}

func (e *ImbalanceStacking) Analyze(tick model.Tick, ctx Context) model.EngineResult {
	if !tick.Valid() {
		return e.last
	}

	weight := tick.Volume
	if weight <= 0 {
		weight = 1.0
	}
	weight *= e.weigher.Weight(tick, e.lastPrice)
	e.lastPrice = tick.Price

	e.buffer = append(e.buffer, footprintTrade{
		level:  e.discretize(tick.Price),
		side:   tick.Side,
		weight: weight,
	})
	if len(e.buffer) > e.cfg.WindowTrades {
		e.buffer = e.buffer[1:]
	}
	e.sinceAnalysis++

	if len(e.buffer) < e.cfg.WindowTrades || e.sinceAnalysis < e.cfg.AnalyzeEvery {
		return e.last
	}
	e.sinceAnalysis = 0
	e.last = e.analyzeFootprint()
	return e.last
}

func (e *ImbalanceStacking) analyzeFootprint() model.EngineResult {
	type sideVol struct{ buy, sell float64 }
	levels := make(map[float64]*sideVol)
	for _, t := range e.buffer {
		lv, ok := levels[t.level]
		if !ok {
			lv = &sideVol{}
			levels[t.level] = lv
		}
		switch t.side {
		case model.SideBuy:
			lv.buy += t.weight
		case model.SideSell:
			lv.sell += t.weight
		}
	}

	prices := make([]float64, 0, len(levels))
	for p := range levels {
		prices = append(prices, p)
	}
	sort.Float64s(prices)

	var imbalances []Imbalance
	for i := 0; i+1 < len(prices); i++ {
		low, high := prices[i], prices[i+1]
		askVol := levels[low].buy   // aggressive buying at the lower level
		bidVol := levels[high].sell // aggressive selling one level up

		switch {
		case bidVol > 0 && askVol/bidVol >= e.cfg.ImbalanceRatio:
			imbalances = append(imbalances, Imbalance{
				Type: "buy", PriceLow: low, PriceHigh: high, Ratio: askVol / bidVol,
			})
		case askVol > 0 && bidVol/askVol >= e.cfg.ImbalanceRatio:
			imbalances = append(imbalances, Imbalance{
				Type: "sell", PriceLow: low, PriceHigh: high, Ratio: bidVol / askVol,
			})
		case askVol > 0 && bidVol == 0:
			imbalances = append(imbalances, Imbalance{
				Type: "buy_zero", PriceLow: low, PriceHigh: high,
			})
		case bidVol > 0 && askVol == 0:
			imbalances = append(imbalances, Imbalance{
				Type: "sell_zero", PriceLow: low, PriceHigh: high,
			})
		}
	}

	stackBuy := longestRun(imbalances, "buy")
	stackSell := longestRun(imbalances, "sell")

	dominant := ""
	signal := 0.0
	switch {
	case stackBuy >= e.cfg.MinStacking && stackBuy > stackSell:
		dominant = "buy"
		signal = math.Min(float64(stackBuy)/5.0, 1.0)
	case stackSell >= e.cfg.MinStacking && stackSell > stackBuy:
		dominant = "sell"
		signal = -math.Min(float64(stackSell)/5.0, 1.0)
	}

	reported := imbalances
	if len(reported) > e.cfg.MaxReported {
		reported = reported[:e.cfg.MaxReported]
	}

	return model.EngineResult{
		Signal: round3(signal),
		Fields: map[string]any{
			"imbalances":         reported,
			"total_imbalances":   len(imbalances),
			"stacking_buy":       stackBuy,
			"stacking_sell":      stackSell,
			"dominant_direction": dominant,
			"levels_analyzed":    len(prices),
			"weight_mode":        e.weigher.Mode(),
		},
	}
}

func (e *ImbalanceStacking) discretize(price float64) float64 {
	if e.cfg.PriceStep <= 0 {
		return price
	}
	return math.Round(price/e.cfg.PriceStep) * e.cfg.PriceStep
}

// longestRun counts the maximum run of consecutive imbalances in one
// direction; zero-side entries ("buy_zero") count toward their direction.
func longestRun(imbalances []Imbalance, direction string) int {
	best, cur := 0, 0
	for _, imb := range imbalances {
		if imb.Type == direction || imb.Type == direction+"_zero" {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

func (e *ImbalanceStacking) emptyResult() model.EngineResult {
	return model.EngineResult{
		Signal: 0,
		Warmup: true,
		Fields: map[string]any{
			"imbalances":         []Imbalance{},
			"total_imbalances":   0,
			"stacking_buy":       0,
			"stacking_sell":      0,
			"dominant_direction": "",
			"levels_analyzed":    0,
			"weight_mode":        e.weigher.Mode(),
		},
	}
}

func (e *ImbalanceStacking) Reset() {
	e.buffer = e.buffer[:0]
	e.sinceAnalysis = 0
	e.lastPrice = 0
	e.last = e.emptyResult()
}
