// Package control defines the metadata messages carried in Control frames:
// session assignment, resume requests, cumulative-byte acknowledgments, and
// fatal session errors.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("control: malformed message")

// Message is one control payload. Every key is optional; peers must tolerate
// and ignore keys they do not recognize.
type Message struct {
	// Resume carries a session token when the client requests continuation.
	Resume string `json:"resume,omitempty"`
	// Ack is the cumulative count of bytes the client has received. A pointer
	// distinguishes "ack of zero" from "no ack".
	Ack *uint64 `json:"ack,omitempty"`
	// Session carries the token the server assigned or confirmed.
	Session string `json:"session,omitempty"`
	// Error signals a fatal, non-retryable session fault.
	Error string `json:"error,omitempty"`
}

// ResumeMessage builds the handshake requesting continuation of token's
// session from the acknowledged byte offset.
func ResumeMessage(token string, ack uint64) Message {
	return Message{Resume: token, Ack: &ack}
}

// AckMessage acknowledges n cumulative bytes received.
func AckMessage(n uint64) Message {
	return Message{Ack: &n}
}

// SessionMessage assigns or confirms a session token.
func SessionMessage(token string) Message {
	return Message{Session: token}
}

// ErrorMessage fatally terminates a session.
func ErrorMessage(reason string) Message {
	return Message{Error: reason}
}

// HasAck reports whether the message carries an acknowledgment.
func (m Message) HasAck() bool {
	return m.Ack != nil
}

// AckValue returns the acknowledged byte count, zero when absent.
func (m Message) AckValue() uint64 {
	if m.Ack == nil {
		return 0
	}
	return *m.Ack
}

// Codec serializes control messages for the wire. It exists so a wire-format
// change (a different encoding, wider integers) stays out of the session
// state machine.
type Codec interface {
	Marshal(Message) ([]byte, error)
	Unmarshal([]byte) (Message, error)
}

// JSONCodec is the wire default: a JSON object with optional keys. An empty
// message marshals to exactly the two bytes "{}".
type JSONCodec struct{}

func (JSONCodec) Marshal(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func (JSONCodec) Unmarshal(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}
