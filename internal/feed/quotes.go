package feed

import (
	"math"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// QuoteConverter turns raw bid/ask quotes into normalized ticks for feeds
// that report no executed trades. The aggressor side is inferred by the
// tick-rule (which side of the book moved), and volume is a synthetic
// weighted tick count under the selected weighting mode. Proportions, not
// absolute sizes, are what the downstream footprint math consumes.
type QuoteConverter struct {
	spec model.MarketSpec
	mode model.WeightMode

	lastBid float64
	lastAsk float64
	lastMid float64
	primed  bool
}

func NewQuoteConverter(spec model.MarketSpec, mode model.WeightMode) *QuoteConverter {
	if !model.ValidWeightMode(mode) {
		mode = model.DefaultWeightMode
	}
	return &QuoteConverter{spec: spec, mode: mode}
}

// SetWeightMode switches the synthetic volume weighting.
func (c *QuoteConverter) SetWeightMode(mode model.WeightMode) {
	if model.ValidWeightMode(mode) {
		c.mode = mode
	}
}

// Reset clears quote history (symbol switch).
func (c *QuoteConverter) Reset(spec model.MarketSpec) {
	c.spec = spec
	c.lastBid, c.lastAsk, c.lastMid = 0, 0, 0
	c.primed = false
}

// Convert produces a tick from one quote update. The first quote primes the
// converter and yields a neutral buy tick of unit volume.
func (c *QuoteConverter) Convert(bid, ask float64, timestampMS int64) model.Tick {
	mid := (bid + ask) / 2
	spread := ask - bid

	if !c.primed {
		c.lastBid, c.lastAsk, c.lastMid = bid, ask, mid
		c.primed = true
		return c.tick(mid, bid, ask, 1.0, model.SideBuy, timestampMS, spread)
	}

	priceChange := mid - c.lastMid
	bidChange := bid - c.lastBid
	askChange := ask - c.lastAsk

	// Tick-rule: the side whose quote moved tells us who was aggressing.
	var side model.Side
	switch {
	case askChange > 0 && math.Abs(bidChange) < math.Abs(askChange)*0.3:
		side = model.SideBuy
	case bidChange < 0 && math.Abs(askChange) < math.Abs(bidChange)*0.3:
		side = model.SideSell
	case bidChange > 0 && askChange > 0:
		side = model.SideBuy
	case bidChange < 0 && askChange < 0:
		side = model.SideSell
	case priceChange >= 0:
		side = model.SideBuy
	default:
		side = model.SideSell
	}

	var volume float64
	switch c.mode {
	case model.WeightEqual:
		volume = 1.0
	case model.WeightSpread:
		typical := math.Abs(mid * 0.00005)
		volume = math.Max(0.5, math.Min(3.0, typical/math.Max(spread, 1e-10)))
	default: // price_weighted
		move := math.Abs(priceChange)
		if c.lastMid > 0 {
			volume = 1.0 + math.Min(move/c.lastMid*100000, 10.0)
		} else {
			volume = 1.0
		}
	}

	c.lastBid, c.lastAsk, c.lastMid = bid, ask, mid
	return c.tick(mid, bid, ask, volume, side, timestampMS, spread)
}

func (c *QuoteConverter) tick(price, bid, ask, volume float64, side model.Side, ts int64, spread float64) model.Tick {
	d := c.spec.Digits
	return model.Tick{
		Symbol:    c.spec.Symbol,
		Price:     roundDigits(price, d),
		Bid:       roundDigits(bid, d),
		Ask:       roundDigits(ask, d),
		Volume:    math.Round(volume*100) / 100,
		Side:      side,
		Timestamp: ts,
		Spread:    roundDigits(spread, d),
	}
}

func roundDigits(v float64, digits int) float64 {
	m := math.Pow(10, float64(digits))
	return math.Round(v*m) / m
}
