package engine

import (
	"testing"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

func imbTick(price, volume float64, side model.Side, ts int64) model.Tick {
	return model.Tick{Symbol: "USTEC", Price: price, Volume: volume, Side: side, Timestamp: ts}
}

func newImbalance(window int) *ImbalanceStacking {
	return NewImbalanceStacking(ImbalanceConfig{
		PriceStep:    1.0,
		WindowTrades: window,
		AnalyzeEvery: window,
	}, model.WeightEqual)
}

func TestImbalanceStackingBuy(t *testing.T) {
	e := newImbalance(10)

	// Heavy aggressive buying at 100 and 101 against token selling one level
	// up: two stacked diagonal buy imbalances at ratio 18.
	trades := []model.Tick{
		imbTick(100, 3, model.SideBuy, 0),
		imbTick(100, 3, model.SideBuy, 10),
		imbTick(100, 3, model.SideBuy, 20),
		imbTick(101, 0.5, model.SideSell, 30),
		imbTick(101, 3, model.SideBuy, 40),
		imbTick(101, 3, model.SideBuy, 50),
		imbTick(101, 3, model.SideBuy, 60),
		imbTick(102, 0.5, model.SideSell, 70),
		imbTick(102, 1, model.SideBuy, 80),
		imbTick(102, 1, model.SideBuy, 90),
	}

	var res model.EngineResult
	for i, tick := range trades {
		res = e.Analyze(tick, Context{})
		if i < len(trades)-1 && !res.Warmup {
			t.Fatalf("analysis before the buffer filled (trade %d): %+v", i, res)
		}
	}

	if sb, _ := res.Field("stacking_buy").(int); sb != 2 {
		t.Fatalf("stacking_buy = %v, want 2; fields = %v", res.Field("stacking_buy"), res.Fields)
	}
	if dir, _ := res.Field("dominant_direction").(string); dir != "buy" {
		t.Errorf("dominant_direction = %q, want buy", dir)
	}
	if res.Signal != 0.4 {
		t.Errorf("signal = %v, want 0.4 (stack 2 of 5)", res.Signal)
	}

	imbs, ok := res.Field("imbalances").([]Imbalance)
	if !ok || len(imbs) != 2 {
		t.Fatalf("imbalances = %v, want 2 entries", res.Field("imbalances"))
	}
	if imbs[0].Type != "buy" || imbs[0].Ratio != 18 {
		t.Errorf("imbalance[0] = %+v, want buy ratio 18", imbs[0])
	}
}

func TestImbalanceStackingSell(t *testing.T) {
	e := newImbalance(10)

	trades := []model.Tick{
		imbTick(100, 0.5, model.SideBuy, 0),
		imbTick(101, 3, model.SideSell, 10),
		imbTick(101, 3, model.SideSell, 20),
		imbTick(101, 3, model.SideSell, 30),
		imbTick(101, 0.5, model.SideBuy, 40),
		imbTick(102, 3, model.SideSell, 50),
		imbTick(102, 3, model.SideSell, 60),
		imbTick(102, 3, model.SideSell, 70),
		imbTick(102, 1, model.SideSell, 80),
		imbTick(102, 1, model.SideSell, 90),
	}

	var res model.EngineResult
	for _, tick := range trades {
		res = e.Analyze(tick, Context{})
	}

	if ss, _ := res.Field("stacking_sell").(int); ss != 2 {
		t.Fatalf("stacking_sell = %v, want 2; fields = %v", res.Field("stacking_sell"), res.Fields)
	}
	if res.Signal != -0.4 {
		t.Errorf("signal = %v, want -0.4", res.Signal)
	}
}

func TestImbalanceZeroSideCountsTowardRun(t *testing.T) {
	imbs := []Imbalance{
		{Type: "buy"},
		{Type: "buy_zero"},
		{Type: "buy"},
		{Type: "sell"},
		{Type: "buy"},
	}
	if got := longestRun(imbs, "buy"); got != 3 {
		t.Errorf("longestRun(buy) = %d, want 3 (zero entries count)", got)
	}
	if got := longestRun(imbs, "sell"); got != 1 {
		t.Errorf("longestRun(sell) = %d, want 1", got)
	}
}

func TestImbalanceSlidingReanalysis(t *testing.T) {
	e := NewImbalanceStacking(ImbalanceConfig{
		PriceStep:    1.0,
		WindowTrades: 10,
		AnalyzeEvery: 5,
	}, model.WeightEqual)

	// Fill the buffer: the 10th trade triggers the first analysis.
	for i := 0; i < 10; i++ {
		e.Analyze(imbTick(100, 1, model.SideBuy, int64(i)*10), Context{})
	}
	if e.sinceAnalysis != 0 {
		t.Fatalf("sinceAnalysis after fill = %d, want 0", e.sinceAnalysis)
	}

	// The next 4 trades ride on the held result; the 5th re-analyzes.
	for i := 0; i < 4; i++ {
		e.Analyze(imbTick(100, 1, model.SideBuy, int64(100+i)*10), Context{})
	}
	if e.sinceAnalysis != 4 {
		t.Errorf("sinceAnalysis = %d, want 4", e.sinceAnalysis)
	}
	e.Analyze(imbTick(100, 1, model.SideBuy, 2000), Context{})
	if e.sinceAnalysis != 0 {
		t.Errorf("sinceAnalysis after re-analysis = %d, want 0", e.sinceAnalysis)
	}
	if len(e.buffer) != 10 {
		t.Errorf("buffer len = %d, want sliding window of 10", len(e.buffer))
	}
}

func TestImbalanceReconfigurePriceStep(t *testing.T) {
	e := newImbalance(10)
	e.Reconfigure(model.MarketSpec{Symbol: "XAUUSD", PriceStep: 0.5})
	if e.cfg.PriceStep != 0.5 {
		t.Errorf("price step = %v, want 0.5", e.cfg.PriceStep)
	}
	if got := e.discretize(2400.74); got != 2400.5 {
		t.Errorf("discretize(2400.74) = %v, want 2400.5", got)
	}
}

func TestImbalanceMalformedTick(t *testing.T) {
	e := newImbalance(10)
	e.Analyze(imbTick(100, 1, model.SideBuy, 0), Context{})

	res := e.Analyze(model.Tick{Price: 0}, Context{})
	if !res.Warmup {
		t.Errorf("malformed tick result = %+v, want held warmup", res)
	}
	if len(e.buffer) != 1 {
		t.Errorf("malformed tick entered the buffer: len = %d", len(e.buffer))
	}
}
