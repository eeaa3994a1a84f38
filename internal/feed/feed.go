// Package feed supplies normalized ticks to the analysis session. Adapters
// deliver ticks in arrival order through a single handler; the session owns
// ordering from there.
package feed

import (
	"context"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// Handler consumes one tick. Called sequentially from the adapter's read
// loop, never concurrently.
type Handler func(tick model.Tick)

// Feed is a market-data source producing normalized ticks for one symbol at
// a time.
type Feed interface {
	// Run blocks, delivering ticks until the context is cancelled.
	// Transient upstream failures reconnect internally.
	Run(ctx context.Context, handler Handler) error
	// SetSymbol redirects the feed to another instrument. Takes effect on
	// the next (re)connection or generator step.
	SetSymbol(symbol string)
}

// WeightModeAware is implemented by feeds that synthesize tick volume and
// honor the session's weighting mode (the quote-driven simulator).
type WeightModeAware interface {
	SetWeightMode(mode model.WeightMode)
}
