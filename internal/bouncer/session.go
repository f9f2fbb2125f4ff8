package bouncer

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mudlink/lifeline/internal/observability"
	"github.com/mudlink/lifeline/internal/protocol/control"
	"github.com/mudlink/lifeline/internal/protocol/frame"
)

// Session pairs one upstream connection with at most one attached client at a
// time. The upstream outlives client attachments; its bytes are retained in
// the replay log until the client acknowledges them.
type Session struct {
	Token string

	log    zerolog.Logger
	onDead func(token string)

	mu         sync.Mutex
	replay     *ReplayLog
	client     net.Conn
	upstream   net.Conn
	lastActive time.Time
	dead       bool
}

func newSession(token string, cfg Config, logger zerolog.Logger, onDead func(string)) (*Session, error) {
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	upstream, err := dialer.Dial("tcp", cfg.UpstreamAddr)
	if err != nil {
		return nil, fmt.Errorf("dial upstream %s: %w", cfg.UpstreamAddr, err)
	}
	s := &Session{
		Token:      token,
		log:        logger.With().Str("session", token).Logger(),
		onDead:     onDead,
		replay:     NewReplayLog(cfg.ReplayLimit),
		upstream:   upstream,
		lastActive: time.Now(),
	}
	go s.readUpstream(upstream)
	return s, nil
}

// attach binds conn as the session's client, confirms the token, and replays
// retained bytes from the client's acknowledged offset. A previously attached
// client is displaced.
func (s *Session) attach(conn net.Conn, msg control.Message) error {
	s.mu.Lock()
	if s.dead {
		s.mu.Unlock()
		return fmt.Errorf("session %s: already terminated", s.Token)
	}
	if s.client != nil {
		_ = s.client.Close()
	}
	s.client = conn
	s.lastActive = time.Now()

	if err := writeControl(conn, control.SessionMessage(s.Token)); err != nil {
		s.client = nil
		s.mu.Unlock()
		return fmt.Errorf("session %s: confirm: %w", s.Token, err)
	}
	if msg.HasAck() {
		s.replay.Ack(msg.AckValue())
	}
	offset := s.replay.Total() - uint64(s.replay.Retained())
	if msg.HasAck() && msg.AckValue() > offset {
		offset = msg.AckValue()
	}
	var replayed int
	for _, chunk := range s.replay.ReplayFrom(offset) {
		if _, err := conn.Write(frame.EncodeData(chunk)); err != nil {
			s.client = nil
			s.mu.Unlock()
			return fmt.Errorf("session %s: replay: %w", s.Token, err)
		}
		replayed += len(chunk)
	}
	s.mu.Unlock()

	if replayed > 0 {
		observability.RecordReplay(replayed)
		s.log.Info().Int("bytes", replayed).Msg("replayed retained output")
	}
	return nil
}

// serveClient pumps frames from the attached client until the connection
// drops, then detaches without touching the session. Leftover frames decoded
// during the handshake are handled first.
func (s *Session) serveClient(conn net.Conn, dec *frame.Decoder, pending []frame.Frame) {
	for _, fr := range pending {
		s.handleClientFrame(fr)
	}
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, derr := dec.Decode(buf[:n])
			for _, fr := range frames {
				s.handleClientFrame(fr)
			}
			if derr != nil {
				s.log.Warn().Err(derr).Msg("client stream faulted")
				break
			}
		}
		if err != nil {
			break
		}
	}
	s.detach(conn)
}

func (s *Session) handleClientFrame(fr frame.Frame) {
	switch fr.Type {
	case frame.TypeData:
		s.mu.Lock()
		upstream := s.upstream
		s.lastActive = time.Now()
		s.mu.Unlock()
		if upstream == nil {
			return
		}
		if _, err := upstream.Write(fr.Payload); err != nil {
			s.terminate("connection lost")
			return
		}
		observability.RecordFrame("upstream", len(fr.Payload))
	case frame.TypeControl:
		msg, err := (control.JSONCodec{}).Unmarshal(fr.Payload)
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed control frame")
			return
		}
		s.mu.Lock()
		if msg.HasAck() {
			s.replay.Ack(msg.AckValue())
		}
		s.lastActive = time.Now()
		s.mu.Unlock()
	default:
		s.log.Debug().Uint8("type", fr.Type).Msg("ignoring unknown frame type")
	}
}

func (s *Session) detach(conn net.Conn) {
	s.mu.Lock()
	if s.client == conn {
		s.client = nil
		s.lastActive = time.Now()
	}
	s.mu.Unlock()
	_ = conn.Close()
}

// readUpstream retains and forwards upstream bytes until the upstream drops,
// which terminates the session.
func (s *Session) readUpstream(upstream net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := upstream.Read(buf)
		if n > 0 {
			s.forwardDownstream(buf[:n])
		}
		if err != nil {
			s.terminate("connection lost")
			return
		}
	}
}

func (s *Session) forwardDownstream(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead {
		return
	}
	s.replay.Append(data)
	if s.client == nil {
		return
	}
	if _, err := s.client.Write(frame.EncodeData(data)); err != nil {
		// The replay log still holds the bytes; a resume will deliver them.
		_ = s.client.Close()
		s.client = nil
		return
	}
	observability.RecordFrame("downstream", len(data))
}

// terminate ends the session fatally: the attached client, if any, is told
// why and must not resume.
func (s *Session) terminate(reason string) {
	s.mu.Lock()
	if s.dead {
		s.mu.Unlock()
		return
	}
	s.dead = true
	client, upstream := s.client, s.upstream
	s.client, s.upstream = nil, nil
	s.mu.Unlock()

	// Unregister before notifying the client so the token cannot resume a
	// session mid-teardown.
	if s.onDead != nil {
		s.onDead(s.Token)
	}
	if client != nil {
		_ = writeControl(client, control.ErrorMessage(reason))
		_ = client.Close()
	}
	if upstream != nil {
		_ = upstream.Close()
	}
	observability.RecordSessionEvent(observability.SessionTerminated)
	s.log.Info().Str("reason", reason).Msg("session terminated")
}

// shutdown closes both sides without a fatal error frame. Used by the reaper.
func (s *Session) shutdown() {
	s.mu.Lock()
	if s.dead {
		s.mu.Unlock()
		return
	}
	s.dead = true
	client, upstream := s.client, s.upstream
	s.client, s.upstream = nil, nil
	s.mu.Unlock()

	if client != nil {
		_ = client.Close()
	}
	if upstream != nil {
		_ = upstream.Close()
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SessionSnapshot is the admin-surface view of one session.
type SessionSnapshot struct {
	Token      string    `json:"token"`
	TotalBytes uint64    `json:"total_bytes"`
	Retained   int       `json:"retained_bytes"`
	Attached   bool      `json:"attached"`
	LastActive time.Time `json:"last_active"`
}

func (s *Session) snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		Token:      s.Token,
		TotalBytes: s.replay.Total(),
		Retained:   s.replay.Retained(),
		Attached:   s.client != nil,
		LastActive: s.lastActive,
	}
}

func writeControl(conn net.Conn, msg control.Message) error {
	payload, err := (control.JSONCodec{}).Marshal(msg)
	if err != nil {
		return err
	}
	wire, err := frame.Encode(frame.TypeControl, payload)
	if err != nil {
		return err
	}
	_, err = conn.Write(wire)
	return err
}
