package model

// AbsorptionType classifies which side of the book absorbed aggression inside
// a micro-window.
type AbsorptionType string

const (
	AbsorptionNone AbsorptionType = ""
	// AbsorptionBuy: price rose while aggressive selling dominated, i.e.
	// resting buyers absorbed the sell flow.
	AbsorptionBuy AbsorptionType = "buy_absorption"
	// AbsorptionSell: price fell while aggressive buying dominated.
	AbsorptionSell AbsorptionType = "sell_absorption"
)

// EngineResult is the per-tick output of a single analysis engine. Signal is
// always clamped to [-1, 1]; zero plus Warmup means the engine has not seen
// enough history yet. Fields carries engine-specific detail for the frontend.
type EngineResult struct {
	Signal float64        `json:"signal"`
	Warmup bool           `json:"warmup,omitempty"`
	Error  string         `json:"error,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// NeutralResult is what an engine returns while warming up or when handed a
// malformed tick.
func NeutralResult() EngineResult {
	return EngineResult{Signal: 0, Warmup: true}
}

// Field returns a detail value or nil.
func (r EngineResult) Field(key string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[key]
}

// AnalysisResult is the orchestrator's aggregate output for one tick. Volume
// and Side are copied from the tick untouched.
type AnalysisResult struct {
	Symbol             string                  `json:"symbol"`
	Volume             float64                 `json:"volume"`
	Side               Side                    `json:"side"`
	Timestamp          int64                   `json:"timestamp"`
	IsAbsorption       bool                    `json:"is_absorption"`
	AbsorptionType     AbsorptionType          `json:"absorption_type,omitempty"`
	AbsorptionStrength float64                 `json:"absorption_strength"`
	StackingBuy        int                     `json:"stacking_buy"`
	StackingSell       int                     `json:"stacking_sell"`
	CompositeSignal    float64                 `json:"composite_signal"`
	Engines            map[string]EngineResult `json:"engines"`
}

// EngineDescriptor is purely descriptive engine metadata for clients.
type EngineDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
