package engine

import (
	"testing"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

func atrTick(price float64, ts int64) model.Tick {
	return model.Tick{Symbol: "XAUUSD", Price: price, Volume: 1, Side: model.SideBuy, Timestamp: ts}
}

func TestATRRegimeFirstCandle(t *testing.T) {
	e := NewATRRegime(ATRConfig{})

	res := e.Analyze(atrTick(2400, 0), Context{})
	if !res.Warmup {
		t.Error("first tick should be warmup")
	}

	// Mid-candle ticks hold a neutral signal.
	res = e.Analyze(atrTick(2401, 1000), Context{})
	if res.Signal != 0 {
		t.Errorf("mid-candle signal = %v, want 0", res.Signal)
	}

	// Candle closes at 5s. First closed candle: atr == baseline, signal 0.
	res = e.Analyze(atrTick(2400, 5000), Context{})
	if res.Warmup {
		t.Error("closed candle should not be warmup")
	}
	if res.Signal != 0 {
		t.Errorf("first candle signal = %v, want 0 (atr equals baseline)", res.Signal)
	}
	if tr, _ := res.Field("tr").(float64); tr != 1.0 {
		t.Errorf("true range = %v, want 1.0 (high 2401, low 2400)", tr)
	}
}

func TestATRRegimeExpansion(t *testing.T) {
	e := NewATRRegime(ATRConfig{})

	// Quiet candle: range 1.
	e.Analyze(atrTick(2400, 0), Context{})
	e.Analyze(atrTick(2401, 1000), Context{})
	e.Analyze(atrTick(2400, 5000), Context{})

	// Wild candle: range 10. ATR jumps against the near-static baseline.
	e.Analyze(atrTick(2410, 6000), Context{})
	res := e.Analyze(atrTick(2400, 10000), Context{})

	if res.Signal <= 0 {
		t.Errorf("expansion signal = %v, want positive", res.Signal)
	}
	if res.Signal != 1.0 {
		t.Errorf("expansion signal = %v, want clamped to 1.0", res.Signal)
	}
}

func TestATRRegimeFlatMarket(t *testing.T) {
	e := NewATRRegime(ATRConfig{})

	e.Analyze(atrTick(2400, 0), Context{})
	res := e.Analyze(atrTick(2400, 5000), Context{})

	// Zero range drives atr and baseline to zero. The ratio is undefined but
	// the market is plainly not expanding: regime is normal, signal neutral.
	if res.Signal != 0 {
		t.Errorf("flat market signal = %v, want 0", res.Signal)
	}
	if regime, _ := res.Field("regime").(string); regime != "normal" {
		t.Errorf("flat market regime = %q, want normal", regime)
	}
}

func TestATRRegimeBackwardTimestamp(t *testing.T) {
	e := NewATRRegime(ATRConfig{})
	e.Analyze(atrTick(2400, 1000), Context{})

	// Out-of-order timestamp continues the open candle instead of closing it.
	res := e.Analyze(atrTick(2405, 500), Context{})
	if res.Signal != 0 {
		t.Errorf("backward timestamp signal = %v, want 0 (candle still open)", res.Signal)
	}
	if len(e.trs) != 0 {
		t.Error("backward timestamp closed a candle")
	}
	if e.high != 2405 {
		t.Errorf("high = %v, want 2405 (tick folded into open candle)", e.high)
	}
}

func TestATRRegimeMalformedTick(t *testing.T) {
	e := NewATRRegime(ATRConfig{})
	e.Analyze(atrTick(2400, 0), Context{})
	e.Analyze(atrTick(2402, 1000), Context{})

	res := e.Analyze(model.Tick{Price: 0, Timestamp: 9000}, Context{})
	if res.Signal != 0 || !res.Warmup {
		t.Errorf("malformed tick result = %+v, want neutral hold", res)
	}
	if e.high != 2402 {
		t.Error("malformed tick mutated the open candle")
	}
}

func TestATRRegimeReset(t *testing.T) {
	e := NewATRRegime(ATRConfig{})
	e.Analyze(atrTick(2400, 0), Context{})
	e.Analyze(atrTick(2410, 5000), Context{})

	e.Reset()
	if e.candleStart != 0 || len(e.trs) != 0 || e.baseline != 0 {
		t.Error("reset did not clear candle state")
	}
}
