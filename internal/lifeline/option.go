package lifeline

import (
	"github.com/rs/zerolog"

	"github.com/mudlink/lifeline/internal/protocol/control"
)

// Option customizes a Socket at construction time.
type Option func(*Socket)

func WithConfig(cfg Config) Option {
	return func(s *Socket) { s.cfg = cfg }
}

// WithDialer overrides the scheme-derived transport dialer.
func WithDialer(d Dialer) Option {
	return func(s *Socket) { s.dialer = d }
}

// WithCodec overrides the control-payload serialization.
func WithCodec(c control.Codec) Option {
	return func(s *Socket) { s.codec = c }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Socket) { s.log = logger }
}

// WithOnOpen fires once per logical session, on the first successful open.
// Internal reconnects do not re-fire it.
func WithOnOpen(fn func()) Option {
	return func(s *Socket) { s.onOpen = fn }
}

// WithOnMessage fires once per delivered Data frame with that frame's raw
// payload. Chunked sends arrive as separate messages.
func WithOnMessage(fn func(payload []byte)) Option {
	return func(s *Socket) { s.onMessage = fn }
}

// WithOnClose fires when the session ends after having been open: peer
// termination or reconnect exhaustion.
func WithOnClose(fn func()) Option {
	return func(s *Socket) { s.onClose = fn }
}

// WithOnError fires when the session fails before ever opening.
func WithOnError(fn func(err error)) Option {
	return func(s *Socket) { s.onError = fn }
}

// WithOnControl fires for every well-formed control message the session layer
// did not consume.
func WithOnControl(fn func(msg control.Message)) Option {
	return func(s *Socket) { s.onControl = fn }
}
