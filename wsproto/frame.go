// Package wsproto defines pylon's extended WebSocket RPC framing (§6),
// layered on top of gorilla/websocket the way air.WebSocket/air.Response's
// WebSocket() upgrade path layers the same library underneath a
// callback-based wrapper.
package wsproto

import (
	"encoding/json"

	"github.com/pylon-dev/pylon/codec"
)

// FrameType enumerates the extended RPC frame kinds, per §6.
type FrameType string

const (
	TypeRequest     FrameType = "rpc.request"
	TypeResponse    FrameType = "rpc.response"
	TypeError       FrameType = "rpc.error"
	TypeNotify      FrameType = "rpc.notify"
	TypeSubscribe   FrameType = "rpc.subscribe"
	TypeUnsubscribe FrameType = "rpc.unsubscribe"
	TypeEvent       FrameType = "rpc.event"
	TypePing        FrameType = "rpc.ping"
	TypePong        FrameType = "rpc.pong"
)

// Frame is the envelope for every message exchanged over a pylon WebSocket
// connection, correlated across request/response pairs by ID.
type Frame struct {
	Type    FrameType              `json:"type"`
	ID      string                 `json:"id,omitempty"`
	Method  string                 `json:"method,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Result  interface{}            `json:"result,omitempty"`
	Error   *FrameError            `json:"error,omitempty"`
	Channel string                 `json:"channel,omitempty"`
	Payload interface{}            `json:"payload,omitempty"`
}

// FrameError carries a translated *pylon.Error across the wire without
// wsproto depending on the root package (avoiding an import cycle).
type FrameError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// EncodeJSON serializes f as a typed-codec JSON frame.
func EncodeJSON(f Frame) ([]byte, error) {
	return codec.Marshal(f, codec.ModeJSON, true)
}

// DecodeJSON parses a typed-codec JSON frame.
func DecodeJSON(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// EncodeBinary serializes f as a typed-codec msgpack frame, for clients
// that negotiated the binary WS subprotocol.
func EncodeBinary(f Frame) ([]byte, error) {
	return codec.Marshal(f, codec.ModeMsgpack, true)
}
