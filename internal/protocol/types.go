// Package protocol defines the JSON frames a mirror sends to its viewers.
package protocol

import (
	"encoding/json"
)

// MessageType identifies a protocol message.
type MessageType string

// Message types sent to mirror viewers.
const (
	MessageSnapshot MessageType = "snapshot"
	MessageRows     MessageType = "rows"
	MessageResize   MessageType = "resize"
	MessageExit     MessageType = "exit"
	MessageError    MessageType = "error"
)

// Envelope wraps all protocol messages. Seq increases by one per frame sent
// on a connection.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope constructs an envelope with a marshaled payload.
func NewEnvelope(msgType MessageType, seq uint64, payload any) (Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		raw = data
	}
	return Envelope{Type: msgType, Seq: seq, Payload: raw}, nil
}

// DecodePayload unmarshals the payload into the provided struct.
func (e Envelope) DecodePayload(out any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, out)
}

// Cursor is a zero-based cursor position.
type Cursor struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Run is a stretch of cells sharing one rendition. FG and BG are palette
// indexes, -1 meaning the default color.
type Run struct {
	Text      string `json:"text"`
	Bold      bool   `json:"bold,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	FG        int    `json:"fg"`
	BG        int    `json:"bg"`
}

// Row is one screen row as styled runs.
type Row struct {
	Index int   `json:"index"`
	Runs  []Run `json:"runs"`
}

// SnapshotPayload carries the whole screen. It is sent first on every
// connection and again after each resize.
type SnapshotPayload struct {
	Cols   int    `json:"cols"`
	Rows   int    `json:"rows"`
	Cursor Cursor `json:"cursor"`
	Lines  []Row  `json:"lines"`
}

// RowsPayload carries the rows that changed since the previous frame.
type RowsPayload struct {
	Cursor Cursor `json:"cursor"`
	Lines  []Row  `json:"lines"`
}

// ResizePayload announces new screen dimensions.
type ResizePayload struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// ExitPayload is the last frame of a mirror connection.
type ExitPayload struct {
	Error string `json:"error,omitempty"`
}

// ErrorPayload communicates error details.
type ErrorPayload struct {
	Message string `json:"message"`
}
