package engine

import "github.com/Elloy123/imbalance-chart27/internal/model"

// VelocityConfig tunes the burst detector. Zero values take defaults.
type VelocityConfig struct {
	WindowSeconds   float64 // trailing window for the rate, default 1s
	MaxHistory      int     // timestamp buffer capacity, default 200
	Decay           float64 // baseline EMA decay, default 0.99
	BurstMultiplier float64 // velocity/baseline ratio that flags a burst, default 2.0
	InitialBaseline float64 // trades/s considered normal before warmup, default 10
}

func (c VelocityConfig) withDefaults() VelocityConfig {
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = 1.0
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = 200
	}
	if c.Decay <= 0 || c.Decay >= 1 {
		c.Decay = 0.99
	}
	if c.BurstMultiplier <= 0 {
		c.BurstMultiplier = 2.0
	}
	if c.InitialBaseline <= 0 {
		c.InitialBaseline = 10.0
	}
	return c
}

// TickVelocity measures trade arrival rate against an adaptive baseline.
// Bursts of trades in a short interval indicate aggressive participation.
type TickVelocity struct {
	cfg        VelocityConfig
	timestamps []int64 // ms, oldest first, capped at MaxHistory
	baseline   float64
}

func NewTickVelocity(cfg VelocityConfig) *TickVelocity {
	cfg = cfg.withDefaults()
	return &TickVelocity{
		cfg:        cfg,
		timestamps: make([]int64, 0, cfg.MaxHistory),
		baseline:   cfg.InitialBaseline,
	}
}

func (e *TickVelocity) Analyze(tick model.Tick, _ Context) model.EngineResult {
	if !tick.Valid() {
		return model.NeutralResult()
	}

	now := tick.Timestamp
	e.timestamps = append(e.timestamps, now)
	if len(e.timestamps) > e.cfg.MaxHistory {
		e.timestamps = e.timestamps[len(e.timestamps)-e.cfg.MaxHistory:]
	}

	cutoff := now - int64(e.cfg.WindowSeconds*1000)
	recent := 0
	for i := len(e.timestamps) - 1; i >= 0; i-- {
		if e.timestamps[i] < cutoff {
			break
		}
		recent++
	}

	velocity := float64(recent) / e.cfg.WindowSeconds
	e.baseline = e.baseline*e.cfg.Decay + velocity*(1-e.cfg.Decay)

	relative := 1.0
	if e.baseline > 1e-9 {
		relative = velocity / e.baseline
	}
	signal := clamp((relative-1.0)/2.0, -1, 1)
	isBurst := velocity > e.baseline*e.cfg.BurstMultiplier

	return model.EngineResult{
		Signal: round3(signal),
		Fields: map[string]any{
			"velocity": velocity,
			"baseline": e.baseline,
			"relative": relative,
			"is_burst": isBurst,
		},
	}
}

func (e *TickVelocity) Reset() {
	e.timestamps = e.timestamps[:0]
	e.baseline = e.cfg.InitialBaseline
}
