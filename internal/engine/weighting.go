package engine

import "github.com/Elloy123/imbalance-chart27/internal/model"

// Weigher values one tick for the weighting-aware engines. The returned
// weight multiplies the tick's reported volume, so the equal strategy leaves
// real volume untouched while the others emphasize or de-emphasize ticks by
// market context. Proportions are what the footprint math consumes, not
// absolute sizes, so scaling is safe.
type Weigher interface {
	Weight(tick model.Tick, lastPrice float64) float64
	Mode() model.WeightMode
}

// NewWeigher builds the strategy for a mode; unknown modes fall back to the
// upstream default (price_weighted).
func NewWeigher(mode model.WeightMode) Weigher {
	switch mode {
	case model.WeightEqual:
		return equalWeigher{}
	case model.WeightSpread:
		return spreadWeigher{}
	default:
		return priceWeigher{}
	}
}

// equalWeigher: every tick counts once.
type equalWeigher struct{}

func (equalWeigher) Weight(model.Tick, float64) float64 { return 1.0 }
func (equalWeigher) Mode() model.WeightMode             { return model.WeightEqual }

// priceWeigher: ticks that move price carry more weight, capped at 11x.
type priceWeigher struct{}

func (priceWeigher) Weight(tick model.Tick, lastPrice float64) float64 {
	if lastPrice <= 0 || tick.Price <= 0 {
		return 1.0
	}
	move := tick.Price - lastPrice
	if move < 0 {
		move = -move
	}
	rel := move / lastPrice * 100000
	if rel > 10 {
		rel = 10
	}
	return 1.0 + rel
}

func (priceWeigher) Mode() model.WeightMode { return model.WeightPrice }

// spreadWeigher: ticks printed in a tight spread are more trustworthy.
// Weight is clamped to [0.5, 3.0]; a missing spread counts as neutral.
type spreadWeigher struct{}

func (spreadWeigher) Weight(tick model.Tick, _ float64) float64 {
	if tick.Spread <= 0 {
		return 1.0
	}
	w := 1.0 / (tick.Spread*10000 + 0.1)
	if w < 0.5 {
		return 0.5
	}
	if w > 3.0 {
		return 3.0
	}
	return w
}

func (spreadWeigher) Mode() model.WeightMode { return model.WeightSpread }
