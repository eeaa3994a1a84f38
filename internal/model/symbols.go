package model

import "strings"

// MarketSpec carries the per-symbol parameters that scale analysis and the
// simulated quote stream: the footprint price step, display precision, and a
// reference price for synthetic feeds.
type MarketSpec struct {
	Symbol    string
	PriceStep float64
	Digits    int
	RefPrice  float64
}

// marketSpecs lists the instruments the service knows how to scale. Unknown
// symbols fall back to DefaultSpec.
var marketSpecs = map[string]MarketSpec{
	"BTCUSDT": {Symbol: "BTCUSDT", PriceStep: 10.0, Digits: 2, RefPrice: 95000.0},
	"ETHUSDT": {Symbol: "ETHUSDT", PriceStep: 1.0, Digits: 2, RefPrice: 3300.0},
	"BTCUSD":  {Symbol: "BTCUSD", PriceStep: 10.0, Digits: 2, RefPrice: 95000.0},
	"XAUUSD":  {Symbol: "XAUUSD", PriceStep: 0.50, Digits: 2, RefPrice: 2650.0},
	"EURUSD":  {Symbol: "EURUSD", PriceStep: 0.0001, Digits: 5, RefPrice: 1.05},
	"GBPUSD":  {Symbol: "GBPUSD", PriceStep: 0.0001, Digits: 5, RefPrice: 1.27},
	"USTEC":   {Symbol: "USTEC", PriceStep: 1.0, Digits: 2, RefPrice: 21500.0},
}

// DefaultSpec is used for symbols without an explicit entry.
var DefaultSpec = MarketSpec{PriceStep: 0.0001, Digits: 5, RefPrice: 1.0}

// SpecFor resolves the market spec for a symbol (case-insensitive).
func SpecFor(symbol string) MarketSpec {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if spec, ok := marketSpecs[sym]; ok {
		return spec
	}
	spec := DefaultSpec
	spec.Symbol = sym
	return spec
}

// KnownSymbols returns the configured symbol list (unordered).
func KnownSymbols() []string {
	out := make([]string, 0, len(marketSpecs))
	for sym := range marketSpecs {
		out = append(out, sym)
	}
	return out
}
