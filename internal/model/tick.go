package model

// Side is the aggressor direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Tick is one normalized market event as delivered by a feed adapter.
// Engines treat it as immutable: Volume and Side are the real values reported
// upstream (or a synthetic weighted tick volume for quote-only feeds) and are
// never rewritten downstream.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Volume    float64 `json:"volume"`
	Side      Side    `json:"side"`
	Timestamp int64   `json:"timestamp"` // milliseconds since epoch
	Spread    float64 `json:"spread,omitempty"`
}

// Valid reports whether the tick is usable for analysis. Engines must not let
// a malformed tick corrupt their rolling state.
func (t Tick) Valid() bool {
	return t.Price > 0
}

// WeightMode selects how quote-only feeds and weighting-aware engines value a
// single tick.
type WeightMode string

const (
	WeightEqual  WeightMode = "equal"
	WeightPrice  WeightMode = "price_weighted"
	WeightSpread WeightMode = "spread_weighted"
)

// DefaultWeightMode matches the upstream feeds' default.
const DefaultWeightMode = WeightPrice

// ValidWeightMode reports whether mode names a supported weighting strategy.
func ValidWeightMode(mode WeightMode) bool {
	switch mode {
	case WeightEqual, WeightPrice, WeightSpread:
		return true
	}
	return false
}
