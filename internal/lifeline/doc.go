// Package lifeline keeps a logical byte-stream session alive across transport
// failures. A Socket dials the bouncer, multiplexes Data and Control frames
// over the connection, and reconnects with exponential backoff when the
// transport drops; the session token and cumulative received-byte count let
// the bouncer resume delivery where it left off, so the application sees one
// continuous connection.
//
// Ownership boundary:
//   - reconnect/backoff state machine
//   - session token and ack bookkeeping
//   - frame dispatch to application callbacks
//
// Wire framing lives in internal/protocol/frame, control payloads in
// internal/protocol/control.
package lifeline
