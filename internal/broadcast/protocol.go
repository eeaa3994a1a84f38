package broadcast

import (
	"encoding/json"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// Controller is the command surface clients reach over the socket. The
// analysis session implements it; the hub only parses and routes.
type Controller interface {
	Symbol() string
	WeightMode() model.WeightMode
	ActiveEngines() []model.EngineDescriptor
	AvailableEngines() []model.EngineDescriptor
	SwitchSymbol(symbol string) error
	SetEngines(names []string) error
	SetWeightMode(mode model.WeightMode) error
}

// clientMessage is the single envelope for every inbound control message.
type clientMessage struct {
	Type    string           `json:"type"`
	Symbol  string           `json:"symbol,omitempty"`
	Engines []string         `json:"engines,omitempty"`
	Mode    model.WeightMode `json:"mode,omitempty"`
}

type serverFrame struct {
	Type       string                   `json:"type"`
	Symbol     string                   `json:"symbol,omitempty"`
	WeightMode model.WeightMode         `json:"weight_mode,omitempty"`
	Engines    []model.EngineDescriptor `json:"engines,omitempty"`
	Available  []model.EngineDescriptor `json:"available,omitempty"`
	Message    string                   `json:"message,omitempty"`
	Data       *model.AnalysisResult    `json:"data,omitempty"`
}

func marshalFrame(f serverFrame) []byte {
	b, err := json.Marshal(f)
	if err != nil {
		// Frames are built from plain structs; a marshal failure is a bug.
		return []byte(`{"type":"error","message":"internal encoding failure"}`)
	}
	return b
}

// TickFrame wraps one analysis result for fan-out and replay.
func TickFrame(res model.AnalysisResult) []byte {
	return marshalFrame(serverFrame{Type: "tick", Symbol: res.Symbol, Data: &res})
}

func connectedFrame(ctrl Controller) []byte {
	return marshalFrame(serverFrame{
		Type:       "connected",
		Symbol:     ctrl.Symbol(),
		WeightMode: ctrl.WeightMode(),
		Engines:    ctrl.ActiveEngines(),
	})
}

func subscribedFrame(symbol string) []byte {
	return marshalFrame(serverFrame{Type: "subscribed", Symbol: symbol})
}

// SymbolChangedFrame notifies every client that the streamed symbol moved.
func SymbolChangedFrame(symbol string) []byte {
	return marshalFrame(serverFrame{Type: "symbol_changed", Symbol: symbol})
}

// EnginesUpdatedFrame carries the new active engine set to every client.
func EnginesUpdatedFrame(engines []model.EngineDescriptor) []byte {
	return marshalFrame(serverFrame{
		Type:    "engines_updated",
		Engines: engines,
	})
}

func engineListFrame(ctrl Controller) []byte {
	return marshalFrame(serverFrame{
		Type:      "engine_list",
		Engines:   ctrl.ActiveEngines(),
		Available: ctrl.AvailableEngines(),
	})
}

// WeightModeChangedFrame announces the new tick-weighting mode.
func WeightModeChangedFrame(mode model.WeightMode) []byte {
	return marshalFrame(serverFrame{Type: "weight_mode_changed", WeightMode: mode})
}

func errorFrame(msg string) []byte {
	return marshalFrame(serverFrame{Type: "error", Message: msg})
}

var pongFrame = []byte(`{"type":"pong"}`)
