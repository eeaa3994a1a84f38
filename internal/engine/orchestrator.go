package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// Orchestrator drives every tick through its active engines in registration
// order and aggregates their results. Engine state is a function of call
// order, so Analyze and the control operations serialize on one mutex: the
// orchestrator behaves as a single-owner, per-symbol execution context.
// Multiple symbols need independent Orchestrator instances.
type Orchestrator struct {
	mu sync.Mutex

	symbol     string
	weightMode model.WeightMode
	names      []string // active engines, registration order
	engines    map[string]Engine

	tickIndex int64
	lastPrice float64
}

// New validates the engine list against the registry and constructs all
// engines. Unknown names and invalid parameters fail here, before any tick is
// processed.
func New(cfg Config) (*Orchestrator, error) {
	if len(cfg.Engines) == 0 {
		cfg.Engines = DefaultEngines()
	}
	if cfg.WeightMode == "" {
		cfg.WeightMode = model.DefaultWeightMode
	}
	if !model.ValidWeightMode(cfg.WeightMode) {
		return nil, configErrorf("unknown weight mode: %q", cfg.WeightMode)
	}

	symbol := strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if cfg.Imbalance.PriceStep <= 0 {
		cfg.Imbalance.PriceStep = model.SpecFor(symbol).PriceStep
	}

	o := &Orchestrator{
		symbol:     symbol,
		weightMode: cfg.WeightMode,
		engines:    make(map[string]Engine, len(cfg.Engines)),
	}
	for _, name := range cfg.Engines {
		factory, ok := registry[name]
		if !ok {
			return nil, configErrorf("unknown engine: %q (available: %s)",
				name, strings.Join(registryOrder, ", "))
		}
		if _, dup := o.engines[name]; dup {
			return nil, configErrorf("engine listed twice: %q", name)
		}
		o.names = append(o.names, name)
		o.engines[name] = factory(cfg)
	}
	return o, nil
}

// Analyze runs one tick through all active engines. A failing engine
// contributes {signal: 0, error} for this tick only; siblings and the tick
// itself are unaffected. Volume and side pass through untouched.
func (o *Orchestrator) Analyze(tick model.Tick) model.AnalysisResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.tickIndex++
	ctx := Context{
		TickIndex: o.tickIndex,
		LastPrice: o.lastPrice,
		Symbol:    o.symbol,
	}

	results := make(map[string]model.EngineResult, len(o.names))
	sum := 0.0
	for _, name := range o.names {
		res := safeAnalyze(o.engines[name], tick, ctx)
		res.Signal = clamp(res.Signal, -1, 1)
		results[name] = res
		// Composite averages every active engine's signal, zeros included:
		// a warming-up engine dilutes the composite toward neutral rather
		// than disappearing from it.
		sum += res.Signal
	}

	composite := 0.0
	if len(o.names) > 0 {
		composite = round3(sum / float64(len(o.names)))
	}

	out := model.AnalysisResult{
		Symbol:          o.symbol,
		Volume:          tick.Volume,
		Side:            tick.Side,
		Timestamp:       tick.Timestamp,
		CompositeSignal: composite,
		Engines:         results,
	}

	if mc, ok := results[EngineMicroCluster]; ok && mc.Error == "" {
		if b, _ := mc.Field("is_absorption").(bool); b {
			out.IsAbsorption = true
			if t, ok := mc.Field("absorption_type").(model.AbsorptionType); ok {
				out.AbsorptionType = t
			}
			if s, ok := mc.Field("absorption_strength").(float64); ok {
				out.AbsorptionStrength = s
			}
		}
	}
	if imb, ok := results[EngineImbalanceDetector]; ok && imb.Error == "" {
		if n, ok := imb.Field("stacking_buy").(int); ok {
			out.StackingBuy = n
		}
		if n, ok := imb.Field("stacking_sell").(int); ok {
			out.StackingSell = n
		}
	}

	if tick.Valid() {
		o.lastPrice = tick.Price
	}
	return out
}

// safeAnalyze isolates engine faults: a panic inside one engine becomes a
// neutral result tagged with the failure.
func safeAnalyze(e Engine, tick model.Tick, ctx Context) (res model.EngineResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.EngineResult{Signal: 0, Error: fmt.Sprintf("%v", r)}
		}
	}()
	return e.Analyze(tick, ctx)
}

// Reset returns every engine and the shared counters to construction state.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
}

func (o *Orchestrator) resetLocked() {
	for _, name := range o.names {
		o.engines[name].Reset()
	}
	o.tickIndex = 0
	o.lastPrice = 0
}

// SwitchSymbol resets all engines and reconfigures the symbol-scaled ones
// (footprint price step). No cross-symbol history survives.
func (o *Orchestrator) SwitchSymbol(symbol string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.symbol = strings.ToUpper(strings.TrimSpace(symbol))
	o.resetLocked()
	spec := model.SpecFor(o.symbol)
	for _, name := range o.names {
		if sa, ok := o.engines[name].(symbolAware); ok {
			sa.Reconfigure(spec)
		}
	}
}

// SetWeightMode propagates a tick-weighting strategy to the engines that
// support one.
func (o *Orchestrator) SetWeightMode(mode model.WeightMode) error {
	if !model.ValidWeightMode(mode) {
		return fmt.Errorf("unknown weight mode: %q", mode)
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.weightMode = mode
	for _, name := range o.names {
		if wa, ok := o.engines[name].(weightModeAware); ok {
			wa.SetWeightMode(mode)
		}
	}
	return nil
}

// Symbol returns the currently analyzed symbol.
func (o *Orchestrator) Symbol() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.symbol
}

// WeightMode returns the active tick-weighting mode.
func (o *Orchestrator) WeightMode() model.WeightMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.weightMode
}

// ActiveEngines lists descriptors for the engines this orchestrator runs, in
// registration order.
func (o *Orchestrator) ActiveEngines() []model.EngineDescriptor {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]model.EngineDescriptor, 0, len(o.names))
	for _, name := range o.names {
		out = append(out, engineInfo[name])
	}
	return out
}

// AllEngines lists descriptors for every registered engine.
func AllEngines() []model.EngineDescriptor {
	out := make([]model.EngineDescriptor, 0, len(registryOrder))
	for _, name := range registryOrder {
		out = append(out, engineInfo[name])
	}
	return out
}
