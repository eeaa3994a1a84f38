package feed

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// Simulator generates a random-walk quote stream and converts it to ticks
// through the tick-rule QuoteConverter. Useful offline and in demos: it
// exercises the same side inference and synthetic volume path a broker quote
// feed would.
type Simulator struct {
	mu    sync.Mutex
	spec  model.MarketSpec
	conv  *QuoteConverter
	price float64
	step  int64

	rng    *rand.Rand
	logger *slog.Logger

	minInterval time.Duration
	maxInterval time.Duration
}

func NewSimulator(symbol string, mode model.WeightMode, logger *slog.Logger) *Simulator {
	spec := model.SpecFor(symbol)
	return &Simulator{
		spec:        spec,
		conv:        NewQuoteConverter(spec, mode),
		price:       spec.RefPrice,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      logger.With("component", "sim_feed"),
		minInterval: 50 * time.Millisecond,
		maxInterval: 200 * time.Millisecond,
	}
}

func (s *Simulator) SetSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spec = model.SpecFor(strings.ToUpper(symbol))
	s.price = s.spec.RefPrice
	s.step = 0
	s.conv.Reset(s.spec)
}

func (s *Simulator) SetWeightMode(mode model.WeightMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.SetWeightMode(mode)
}

// Run emits ticks at a jittered 50-200ms cadence until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, handler Handler) error {
	s.logger.Info("feed_connected", "symbol", s.spec.Symbol, "mode", "simulated")
	timer := time.NewTimer(s.minInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		handler(s.next())

		jitter := s.minInterval +
			time.Duration(s.rng.Int63n(int64(s.maxInterval-s.minInterval)))
		timer.Reset(jitter)
	}
}

// next advances the walk one step: a slow sine drift plus gaussian noise,
// scaled to the instrument's reference price.
func (s *Simulator) next() model.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.step++
	drift := math.Sin(float64(s.step)/120.0) * s.spec.RefPrice * 0.00002
	noise := s.rng.NormFloat64() * s.spec.RefPrice * 0.00004
	s.price += drift + noise
	if s.price < s.spec.RefPrice*0.5 {
		s.price = s.spec.RefPrice * 0.5
	}

	spread := s.price * 0.00008
	bid := s.price - spread/2
	ask := s.price + spread/2
	return s.conv.Convert(bid, ask, time.Now().UnixMilli())
}
