package engine

import (
	"testing"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

func absTick(price, volume float64, side model.Side, ts int64) model.Tick {
	return model.Tick{Symbol: "BTCUSDT", Price: price, Volume: volume, Side: side, Timestamp: ts}
}

// newAbsorption uses equal weighting so window volumes equal the raw tick
// volumes and assertions stay exact.
func newAbsorption() *AbsorptionDetector {
	return NewAbsorptionDetector(AbsorptionConfig{}, model.WeightEqual)
}

func TestAbsorptionSellSide(t *testing.T) {
	e := newAbsorption()

	// Price falls while aggressive buying dominates 10:1. Resting sellers are
	// absorbing the buy flow.
	e.Analyze(absTick(50000, 5, model.SideBuy, 0), Context{})
	e.Analyze(absTick(49950, 5, model.SideBuy, 50), Context{})
	res := e.Analyze(absTick(49900, 1, model.SideSell, 120), Context{})

	if b, _ := res.Field("is_absorption").(bool); !b {
		t.Fatalf("is_absorption = false, want true; fields = %v", res.Fields)
	}
	if typ, _ := res.Field("absorption_type").(model.AbsorptionType); typ != model.AbsorptionSell {
		t.Errorf("absorption_type = %v, want sell_absorption", typ)
	}
	if s, _ := res.Field("absorption_strength").(float64); s != 10.0 {
		t.Errorf("absorption_strength = %v, want raw ratio 10.0", s)
	}
	if res.Signal != -1.0 {
		t.Errorf("signal = %v, want -1.0 (strength 10 clamped)", res.Signal)
	}
}

func TestAbsorptionBuySide(t *testing.T) {
	e := newAbsorption()

	// Price rises into dominant selling.
	e.Analyze(absTick(50000, 1, model.SideSell, 0), Context{})
	e.Analyze(absTick(50050, 2, model.SideSell, 40), Context{})
	res := e.Analyze(absTick(50100, 1, model.SideBuy, 110), Context{})

	if typ, _ := res.Field("absorption_type").(model.AbsorptionType); typ != model.AbsorptionBuy {
		t.Fatalf("absorption_type = %v, want buy_absorption; fields = %v", typ, res.Fields)
	}
	if res.Signal <= 0 {
		t.Errorf("buy absorption signal = %v, want positive", res.Signal)
	}
}

func TestAbsorptionBalancedWindowIsNotAbsorption(t *testing.T) {
	e := newAbsorption()

	// Price up with buying dominant: trend confirmation, not absorption.
	e.Analyze(absTick(50000, 5, model.SideBuy, 0), Context{})
	e.Analyze(absTick(50050, 5, model.SideBuy, 40), Context{})
	res := e.Analyze(absTick(50100, 1, model.SideSell, 110), Context{})

	if b, _ := res.Field("is_absorption").(bool); b {
		t.Errorf("trend window flagged as absorption: %v", res.Fields)
	}
	if res.Signal != 0 {
		t.Errorf("signal = %v, want 0", res.Signal)
	}
}

func TestAbsorptionDominanceBelowRatio(t *testing.T) {
	e := newAbsorption()

	// Selling dominates but only 1.2:1, under the 1.5 dominance ratio.
	e.Analyze(absTick(50000, 6, model.SideSell, 0), Context{})
	e.Analyze(absTick(50050, 5, model.SideBuy, 40), Context{})
	res := e.Analyze(absTick(50100, 1.2, model.SideSell, 110), Context{})

	if b, _ := res.Field("is_absorption").(bool); b {
		t.Errorf("sub-threshold dominance flagged as absorption: %v", res.Fields)
	}
}

func TestAbsorptionWindowNeedsMinTrades(t *testing.T) {
	e := newAbsorption()

	// Two trades spanning more than 100ms must not close the window.
	e.Analyze(absTick(50000, 5, model.SideBuy, 0), Context{})
	res := e.Analyze(absTick(49900, 1, model.SideSell, 200), Context{})

	if !res.Warmup {
		t.Errorf("window closed with 2 trades: %+v", res)
	}
}

func TestAbsorptionHoldsLastResultMidWindow(t *testing.T) {
	e := newAbsorption()

	e.Analyze(absTick(50000, 5, model.SideBuy, 0), Context{})
	e.Analyze(absTick(49950, 5, model.SideBuy, 50), Context{})
	closed := e.Analyze(absTick(49900, 1, model.SideSell, 120), Context{})

	// Next tick opens a new window; the previous analysis is repeated.
	held := e.Analyze(absTick(49900, 1, model.SideBuy, 130), Context{})
	if held.Signal != closed.Signal {
		t.Errorf("mid-window signal = %v, want held %v", held.Signal, closed.Signal)
	}
}

func TestAbsorptionMalformedTick(t *testing.T) {
	e := newAbsorption()
	e.Analyze(absTick(50000, 5, model.SideBuy, 0), Context{})

	res := e.Analyze(model.Tick{Price: 0, Timestamp: 50}, Context{})
	if !res.Warmup || res.Signal != 0 {
		t.Errorf("malformed tick result = %+v, want pending", res)
	}
	if len(e.buffer) != 1 {
		t.Errorf("malformed tick entered the window buffer: len = %d", len(e.buffer))
	}
}

func TestAbsorptionCountsAccumulate(t *testing.T) {
	e := newAbsorption()

	for w := 0; w < 3; w++ {
		base := int64(w) * 1000
		e.Analyze(absTick(50000, 5, model.SideBuy, base), Context{})
		e.Analyze(absTick(49950, 5, model.SideBuy, base+50), Context{})
		e.Analyze(absTick(49900, 1, model.SideSell, base+120), Context{})
	}

	if e.absorptions != 3 {
		t.Errorf("total absorptions = %d, want 3", e.absorptions)
	}

	e.Reset()
	if e.absorptions != 0 || len(e.volumes) != 0 || e.last != nil {
		t.Error("reset did not clear detector state")
	}
}
