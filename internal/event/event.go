package event

import "encoding/json"

// WsEvent is the envelope for every frame on the wire, both directions.
// Payload stays raw until the dispatcher knows which handler wants it.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals the payload and wraps it in an envelope.
func NewEvent(name string, payload interface{}) WsEvent {
	b, _ := json.Marshal(payload)
	return WsEvent{Event: name, Payload: b}
}
