// Package stream owns the live analysis session: one feed, one engine
// orchestrator, and the paths out (websocket fan-out and the snapshot cache).
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Elloy123/imbalance-chart27/internal/broadcast"
	"github.com/Elloy123/imbalance-chart27/internal/engine"
	"github.com/Elloy123/imbalance-chart27/internal/feed"
	"github.com/Elloy123/imbalance-chart27/internal/instrumentation"
	"github.com/Elloy123/imbalance-chart27/internal/model"
	"github.com/Elloy123/imbalance-chart27/internal/publisher"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9._]{2,20}$`)

// Session drives ticks from the feed through the orchestrator and pushes
// results to clients and the snapshot cache. It also implements
// broadcast.Controller, so client control messages land here.
type Session struct {
	baseCfg engine.Config
	source  feed.Feed
	pub     publisher.Snapshot
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu   sync.RWMutex
	orch *engine.Orchestrator
	hub  *broadcast.Hub
}

func New(cfg engine.Config, source feed.Feed, pub publisher.Snapshot, metrics *instrumentation.Metrics, logger *slog.Logger) (*Session, error) {
	orch, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	if pub == nil {
		pub = publisher.Disabled{}
	}
	return &Session{
		baseCfg: cfg,
		orch:    orch,
		source:  source,
		pub:     pub,
		metrics: metrics,
		logger:  logger.With("component", "session"),
	}, nil
}

// AttachHub wires the fan-out hub in after construction (hub and session
// reference each other).
func (s *Session) AttachHub(h *broadcast.Hub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub = h
}

// Run consumes the feed until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session_started",
		"symbol", s.Symbol(),
		"weight_mode", s.WeightMode(),
		"engines", len(s.ActiveEngines()),
	)
	return s.source.Run(ctx, s.Process)
}

// Process runs one tick through the active engines and distributes the
// result. Safe for the feed's sequential read loop; internal state is guarded
// for the concurrent control operations.
func (s *Session) Process(tick model.Tick) {
	s.mu.RLock()
	orch := s.orch
	hub := s.hub
	s.mu.RUnlock()

	start := time.Now()
	res := orch.Analyze(tick)
	s.metrics.RecordTick(float64(time.Since(start).Microseconds()) / 1000.0)

	for name, er := range res.Engines {
		if er.Error != "" {
			s.metrics.RecordEngineError(name)
			s.logger.Warn("engine_error", "engine", name, "error", er.Error)
		}
	}

	if hub != nil {
		hub.Broadcast(broadcast.TickFrame(res))
	}

	pubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.pub.Publish(pubCtx, res); err != nil {
		s.logger.Warn("snapshot_publish_failed", "symbol", res.Symbol, "error", err)
	}
}

// Symbol implements broadcast.Controller.
func (s *Session) Symbol() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orch.Symbol()
}

func (s *Session) WeightMode() model.WeightMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orch.WeightMode()
}

func (s *Session) ActiveEngines() []model.EngineDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orch.ActiveEngines()
}

func (s *Session) AvailableEngines() []model.EngineDescriptor {
	return engine.AllEngines()
}

// SwitchSymbol moves the whole session to another instrument: engines reset,
// the feed redials, and stale replay frames are dropped.
func (s *Session) SwitchSymbol(symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol: %q", symbol)
	}

	s.mu.Lock()
	if symbol == s.orch.Symbol() {
		s.mu.Unlock()
		return nil
	}
	s.orch.SwitchSymbol(symbol)
	hub := s.hub
	s.mu.Unlock()

	s.source.SetSymbol(symbol)
	if hub != nil {
		hub.ClearReplay()
		hub.BroadcastControl(broadcast.SymbolChangedFrame(symbol))
	}
	s.logger.Info("symbol_switched", "symbol", symbol)
	return nil
}

// SetEngines replaces the active engine set. The new orchestrator starts cold
// on the current symbol and weight mode; tuning knobs carry over from the
// session's base configuration.
func (s *Session) SetEngines(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("engine list is empty")
	}

	s.mu.Lock()
	cfg := s.baseCfg
	cfg.Engines = names
	cfg.Symbol = s.orch.Symbol()
	cfg.WeightMode = s.orch.WeightMode()
	orch, err := engine.New(cfg)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.orch = orch
	hub := s.hub
	engines := orch.ActiveEngines()
	s.mu.Unlock()

	if hub != nil {
		hub.BroadcastControl(broadcast.EnginesUpdatedFrame(engines))
	}
	s.logger.Info("engines_updated", "engines", names)
	return nil
}

// SetWeightMode switches tick weighting on the engines and, when the feed
// synthesizes volume, on the feed as well.
func (s *Session) SetWeightMode(mode model.WeightMode) error {
	s.mu.Lock()
	if err := s.orch.SetWeightMode(mode); err != nil {
		s.mu.Unlock()
		return err
	}
	hub := s.hub
	s.mu.Unlock()

	if wa, ok := s.source.(feed.WeightModeAware); ok {
		wa.SetWeightMode(mode)
	}
	if hub != nil {
		hub.BroadcastControl(broadcast.WeightModeChangedFrame(mode))
	}
	s.logger.Info("weight_mode_changed", "mode", mode)
	return nil
}
