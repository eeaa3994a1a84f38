package engine

import (
	"testing"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

func velocityTick(ts int64) model.Tick {
	return model.Tick{Symbol: "BTCUSDT", Price: 50000, Volume: 1, Side: model.SideBuy, Timestamp: ts}
}

func TestTickVelocityBurst(t *testing.T) {
	e := NewTickVelocity(VelocityConfig{})

	// 50 trades inside one second against a baseline of 10/s is a burst.
	var res model.EngineResult
	for i := 0; i < 50; i++ {
		res = e.Analyze(velocityTick(int64(i)*20), Context{})
	}

	if res.Signal != 1.0 {
		t.Errorf("burst signal = %v, want clamped 1.0", res.Signal)
	}
	if burst, _ := res.Field("is_burst").(bool); !burst {
		t.Error("is_burst = false, want true")
	}
	if v, _ := res.Field("velocity").(float64); v < 40 {
		t.Errorf("velocity = %v, want >= 40 trades/s", v)
	}
}

func TestTickVelocityQuietStream(t *testing.T) {
	e := NewTickVelocity(VelocityConfig{})

	// One trade every 2 seconds is well under the initial 10/s baseline.
	var res model.EngineResult
	for i := 0; i < 10; i++ {
		res = e.Analyze(velocityTick(int64(i)*2000), Context{})
	}

	if res.Signal >= 0 {
		t.Errorf("quiet stream signal = %v, want negative", res.Signal)
	}
	if burst, _ := res.Field("is_burst").(bool); burst {
		t.Error("is_burst = true on a quiet stream")
	}
}

func TestTickVelocityMalformedTickDoesNotMutate(t *testing.T) {
	e := NewTickVelocity(VelocityConfig{})
	e.Analyze(velocityTick(0), Context{})

	bad := e.Analyze(model.Tick{Price: 0, Timestamp: 100}, Context{})
	if bad.Signal != 0 || !bad.Warmup {
		t.Errorf("malformed tick result = %+v, want neutral warmup", bad)
	}
	if len(e.timestamps) != 1 {
		t.Errorf("malformed tick mutated history: len = %d, want 1", len(e.timestamps))
	}
}

func TestTickVelocityReset(t *testing.T) {
	e := NewTickVelocity(VelocityConfig{InitialBaseline: 7})
	for i := 0; i < 20; i++ {
		e.Analyze(velocityTick(int64(i)*10), Context{})
	}

	e.Reset()
	if len(e.timestamps) != 0 {
		t.Errorf("timestamps after reset = %d, want 0", len(e.timestamps))
	}
	if e.baseline != 7 {
		t.Errorf("baseline after reset = %v, want initial 7", e.baseline)
	}
}

func TestTickVelocityHistoryCapped(t *testing.T) {
	e := NewTickVelocity(VelocityConfig{MaxHistory: 10})
	for i := 0; i < 100; i++ {
		e.Analyze(velocityTick(int64(i)*10), Context{})
	}
	if len(e.timestamps) != 10 {
		t.Errorf("history len = %d, want capped at 10", len(e.timestamps))
	}
}
