package model

import "fmt"

// ValidateResult checks an AnalysisResult against the aggregate invariants:
// signals bounded, pass-through fields untouched, counters non-negative.
func ValidateResult(res *AnalysisResult, tick Tick) error {
	if res.Volume != tick.Volume {
		return fmt.Errorf("volume rewritten: tick=%f result=%f", tick.Volume, res.Volume)
	}
	if res.Side != tick.Side {
		return fmt.Errorf("side rewritten: tick=%s result=%s", tick.Side, res.Side)
	}
	if res.CompositeSignal < -1 || res.CompositeSignal > 1 {
		return fmt.Errorf("composite_signal out of range: %f", res.CompositeSignal)
	}
	if res.AbsorptionStrength < 0 {
		return fmt.Errorf("absorption_strength negative: %f", res.AbsorptionStrength)
	}
	if res.StackingBuy < 0 || res.StackingSell < 0 {
		return fmt.Errorf("stacking counts negative: buy=%d sell=%d", res.StackingBuy, res.StackingSell)
	}
	for name, er := range res.Engines {
		if er.Signal < -1 || er.Signal > 1 {
			return fmt.Errorf("engine %s signal out of range: %f", name, er.Signal)
		}
	}
	switch res.AbsorptionType {
	case AbsorptionNone, AbsorptionBuy, AbsorptionSell:
	default:
		return fmt.Errorf("invalid absorption_type: %s", res.AbsorptionType)
	}
	return nil
}
