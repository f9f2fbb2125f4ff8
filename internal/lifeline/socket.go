package lifeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mudlink/lifeline/internal/protocol/control"
	"github.com/mudlink/lifeline/internal/protocol/frame"
)

var (
	ErrTargetRequired     = errors.New("lifeline: target required")
	ErrReconnectExhausted = errors.New("lifeline: reconnect attempts exhausted")
)

// Socket is the application-facing facade. It presents one continuous
// logical connection while transports fail and get replaced underneath.
//
// All state transitions, frame dispatch, and command execution run on the
// single goroutine inside Run; there is no internal locking.
type Socket struct {
	target string
	cfg    Config
	dialer Dialer
	codec  control.Codec
	log    zerolog.Logger

	onOpen    func()
	onMessage func(payload []byte)
	onClose   func()
	onError   func(err error)
	onControl func(msg control.Message)

	cmds   chan command
	events chan transportEvent
	done   chan struct{}
	stop   sync.Once
}

// New builds a socket for target. Nothing connects until Run is called.
func New(target string, opts ...Option) (*Socket, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrTargetRequired
	}
	s := &Socket{
		target: target,
		cfg:    DefaultConfig(),
		codec:  control.JSONCodec{},
		log:    zerolog.Nop(),
		cmds:   make(chan command, 64),
		events: make(chan transportEvent, 64),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.WithDefaults()
	if s.dialer == nil {
		s.dialer = defaultDialer(target, s.cfg)
	}
	return s, nil
}

// Run connects and drives the session until the context is cancelled, Close
// is called, or the session ends permanently (reconnect budget exhausted or
// the peer terminated it). Run must be called exactly once.
func (s *Socket) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.Close()

	rs := &runState{
		st:    &session{phase: phaseFresh},
		dec:   frame.NewDecoderLimit(s.cfg.MaxPendingFrame),
		retry: &reconnector{cfg: s.cfg.Backoff, max: s.cfg.MaxAttempts},
	}
	defer rs.cleanup()

	s.dial(ctx, rs.epoch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-rs.backoffC:
			rs.backoff, rs.backoffC = nil, nil
			s.dial(ctx, rs.epoch)
		case cmd := <-s.cmds:
			s.handleCommand(rs, cmd)
		case ev := <-s.events:
			s.handleEvent(rs, ev)
		}
		if rs.st.phase == phaseTerminated {
			return nil
		}
	}
}

// Close releases the socket: the run loop exits, any pending backoff timer is
// cancelled, and the current transport is closed. Safe to call repeatedly.
func (s *Socket) Close() error {
	s.stop.Do(func() { close(s.done) })
	return nil
}

// Send frames data as one or more Data frames and transmits them. Dropped
// silently when no transport is open; nothing is queued.
func (s *Socket) Send(data []byte) {
	s.enqueue(command{kind: cmdSendData, data: data})
}

// SendText is Send for string payloads.
func (s *Socket) SendText(text string) {
	s.Send([]byte(text))
}

// SendControl serializes msg and transmits it as one Control frame. The
// payload must fit a single frame.
func (s *Socket) SendControl(msg control.Message) {
	s.enqueue(command{kind: cmdSendControl, msg: msg})
}

// SendAck transmits an acknowledgment carrying the cumulative received-byte
// count.
func (s *Socket) SendAck() {
	s.enqueue(command{kind: cmdSendAck})
}

type cmdKind int

const (
	cmdSendData cmdKind = iota
	cmdSendControl
	cmdSendAck
)

type command struct {
	kind cmdKind
	data []byte
	msg  control.Message
}

func (s *Socket) enqueue(cmd command) {
	select {
	case s.cmds <- cmd:
	default:
		// Loop gone or saturated; fire-and-forget semantics allow the drop.
	}
}

type eventKind int

const (
	evOpened eventKind = iota
	evDialFailed
	evMessage
	evClosed
	evErrored
)

type transportEvent struct {
	epoch int
	kind  eventKind
	data  []byte
	err   error
	tr    Transport
}

// epochSink tags transport notifications with the generation that produced
// them, so a superseded transport cannot mutate state after its replacement
// exists.
type epochSink struct {
	s     *Socket
	epoch int
}

func (k *epochSink) Message(data []byte) {
	k.s.push(transportEvent{epoch: k.epoch, kind: evMessage, data: data})
}

func (k *epochSink) Closed() {
	k.s.push(transportEvent{epoch: k.epoch, kind: evClosed})
}

func (k *epochSink) Errored(err error) {
	k.s.push(transportEvent{epoch: k.epoch, kind: evErrored, err: err})
}

func (s *Socket) push(ev transportEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
		if ev.tr != nil {
			_ = ev.tr.Close()
		}
	}
}

// runState is everything the run goroutine owns.
type runState struct {
	st       *session
	dec      *frame.Decoder
	retry    *reconnector
	current  Transport
	epoch    int
	backoff  *time.Timer
	backoffC <-chan time.Time
}

func (rs *runState) cleanup() {
	if rs.backoff != nil {
		rs.backoff.Stop()
	}
	if rs.current != nil {
		_ = rs.current.Close()
	}
}

func (s *Socket) dial(ctx context.Context, epoch int) {
	sink := &epochSink{s: s, epoch: epoch}
	go func() {
		tr, err := s.dialer.Dial(ctx, s.target, sink)
		if err != nil {
			s.push(transportEvent{epoch: epoch, kind: evDialFailed, err: err})
			return
		}
		s.push(transportEvent{epoch: epoch, kind: evOpened, tr: tr})
	}()
}

func (s *Socket) handleEvent(rs *runState, ev transportEvent) {
	if ev.epoch != rs.epoch {
		if ev.tr != nil {
			_ = ev.tr.Close()
		}
		return
	}
	switch ev.kind {
	case evOpened:
		rs.current = ev.tr
		rs.retry.reset()
		rs.dec.Reset()
		// The resume-or-new handshake precedes all other traffic.
		hs := rs.st.handshake()
		if err := s.sendControlFrame(rs.current, hs); err != nil {
			s.log.Warn().Err(err).Msg("session handshake failed")
			s.beginReconnect(rs)
			return
		}
		first := rs.st.phase == phaseFresh
		rs.st.phase = phaseActiveOpen
		s.log.Debug().Bool("resume", hs.Resume != "").Msg("transport open")
		if first {
			s.fire(s.onOpen)
		}
	case evDialFailed:
		s.log.Warn().Err(ev.err).Str("target", s.target).Msg("dial failed")
		s.beginReconnect(rs)
	case evErrored:
		s.log.Warn().Err(ev.err).Msg("transport error")
		s.beginReconnect(rs)
	case evClosed:
		s.log.Debug().Msg("transport closed")
		s.beginReconnect(rs)
	case evMessage:
		s.handleChunk(rs, ev.data)
	}
}

// beginReconnect retires the current transport and either schedules the next
// attempt or, when the budget is spent, ends the session: a close
// notification if the application ever saw it open, an error otherwise.
func (s *Socket) beginReconnect(rs *runState) {
	if rs.current != nil {
		_ = rs.current.Close()
		rs.current = nil
	}
	rs.epoch++ // anything the old transport still emits is stale
	if rs.st.phase == phaseTerminated {
		return
	}
	if rs.st.phase == phaseActiveOpen {
		rs.st.phase = phaseActiveReconnecting
	}

	delay, ok := rs.retry.next()
	if !ok {
		wasOpen := rs.st.phase == phaseActiveReconnecting
		rs.st.phase = phaseTerminated
		s.log.Error().Int("attempts", rs.retry.max).Msg("reconnect attempts exhausted")
		if wasOpen {
			s.fire(s.onClose)
		} else {
			s.fireError(ErrReconnectExhausted)
		}
		return
	}

	s.log.Info().Int("attempt", rs.retry.attempts).Dur("delay", delay).Msg("reconnecting")
	if rs.backoff != nil {
		rs.backoff.Stop()
	}
	rs.backoff = time.NewTimer(delay)
	rs.backoffC = rs.backoff.C
}

func (s *Socket) handleChunk(rs *runState, data []byte) {
	frames, err := rs.dec.Decode(data)
	for _, fr := range frames {
		s.dispatchFrame(rs, fr)
		if rs.st.phase == phaseTerminated {
			return
		}
	}
	if err != nil {
		s.log.Error().Err(err).Msg("frame decode failed, recycling transport")
		s.beginReconnect(rs)
	}
}

func (s *Socket) dispatchFrame(rs *runState, fr frame.Frame) {
	switch fr.Type {
	case frame.TypeData:
		count := rs.st.noteData(len(fr.Payload))
		s.fireMessage(fr.Payload)
		// One ACK per Data frame keeps the bouncer's replay log tight.
		if rs.current != nil {
			if err := s.sendControlFrame(rs.current, control.AckMessage(count)); err != nil {
				s.log.Warn().Err(err).Msg("ack send failed")
			}
		}
	case frame.TypeControl:
		msg, err := s.codec.Unmarshal(fr.Payload)
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed control payload")
			return
		}
		if msg.Session != "" {
			s.log.Info().Str("session", msg.Session).Msg("session token assigned")
		}
		if rs.st.applyControl(msg) {
			// Fatal server-side fault: tear down without reconnecting.
			s.log.Error().Str("reason", msg.Error).Msg("session terminated by peer")
			if rs.current != nil {
				_ = rs.current.Close()
				rs.current = nil
			}
			rs.epoch++
			s.fire(s.onClose)
			return
		}
		s.fireControl(msg)
	default:
		s.log.Warn().Uint8("type", fr.Type).Msg("ignoring unknown frame type")
	}
}

func (s *Socket) handleCommand(rs *runState, cmd command) {
	if rs.current == nil || rs.st.phase != phaseActiveOpen {
		s.log.Debug().Msg("no open transport, dropping outbound data")
		return
	}
	var err error
	switch cmd.kind {
	case cmdSendData:
		err = rs.current.Send(frame.EncodeData(cmd.data))
	case cmdSendControl:
		err = s.sendControlFrame(rs.current, cmd.msg)
	case cmdSendAck:
		err = s.sendControlFrame(rs.current, control.AckMessage(rs.st.bytesReceived))
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("send failed")
	}
}

func (s *Socket) sendControlFrame(tr Transport, msg control.Message) error {
	payload, err := s.codec.Marshal(msg)
	if err != nil {
		return err
	}
	wire, err := frame.Encode(frame.TypeControl, payload)
	if err != nil {
		return err
	}
	return tr.Send(wire)
}

func (s *Socket) fire(fn func()) {
	if fn != nil {
		fn()
	}
}

func (s *Socket) fireMessage(payload []byte) {
	if s.onMessage != nil {
		s.onMessage(payload)
	}
}

func (s *Socket) fireError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *Socket) fireControl(msg control.Message) {
	if s.onControl != nil {
		s.onControl(msg)
	}
}
