package bouncer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mudlink/lifeline/internal/observability"
	"github.com/mudlink/lifeline/internal/protocol/control"
	"github.com/mudlink/lifeline/internal/protocol/frame"
)

// Server accepts lifeline clients and maps them onto sessions. Every client
// attachment must open with a control frame: empty for a new session, or
// {resume, ack} to re-attach to an existing one.
type Server struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewServer(cfg Config, logger zerolog.Logger) (*Server, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		log:      logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts clients on ln until ctx is cancelled. Split from Run so tests
// can bind their own listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("upstream", s.cfg.UpstreamAddr).
		Msg("bouncer listening")

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	group.Go(func() error {
		return s.acceptLoop(ctx, ln)
	})
	group.Go(func() error {
		return s.reapLoop(ctx)
	})
	if s.cfg.AdminAddr != "" {
		group.Go(func() error {
			return s.serveAdmin(ctx)
		})
	}

	err := group.Wait()
	s.shutdownSessions()
	if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleClient(conn)
	}
}

// handleClient runs the attachment handshake, then hands the connection to
// its session's read loop.
func (s *Server) handleClient(conn net.Conn) {
	dec := frame.NewDecoder()
	first, pending, err := readHandshake(conn, dec, s.cfg.HandshakeTimeout)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("handshake read failed")
		_ = conn.Close()
		return
	}
	if first.Type != frame.TypeControl {
		_ = writeControl(conn, control.ErrorMessage("expected control frame"))
		_ = conn.Close()
		return
	}
	msg, err := (control.JSONCodec{}).Unmarshal(first.Payload)
	if err != nil {
		_ = writeControl(conn, control.ErrorMessage("malformed handshake"))
		_ = conn.Close()
		return
	}

	var sess *Session
	if msg.Resume != "" {
		sess = s.lookup(msg.Resume)
		if sess == nil {
			observability.RecordSessionEvent(observability.SessionRejected)
			s.log.Warn().Str("token", msg.Resume).Msg("resume rejected: unknown session")
			_ = writeControl(conn, control.ErrorMessage("invalid session"))
			_ = conn.Close()
			return
		}
		observability.RecordSessionEvent(observability.SessionResumed)
	} else {
		sess, err = s.openSession()
		if err != nil {
			s.log.Error().Err(err).Msg("session open failed")
			_ = writeControl(conn, control.ErrorMessage("upstream unavailable"))
			_ = conn.Close()
			return
		}
		observability.RecordSessionEvent(observability.SessionOpened)
	}

	if err := sess.attach(conn, msg); err != nil {
		s.log.Warn().Err(err).Msg("attach failed")
		_ = writeControl(conn, control.ErrorMessage("invalid session"))
		_ = conn.Close()
		return
	}
	sess.serveClient(conn, dec, pending)
}

func (s *Server) openSession() (*Session, error) {
	token := uuid.NewString()
	sess, err := newSession(token, s.cfg, s.log, s.remove)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()
	s.log.Info().Str("session", token).Msg("session opened")
	return sess, nil
}

func (s *Server) lookup(token string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[token]
}

func (s *Server) remove(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SessionSnapshots returns the admin view of every live session.
func (s *Server) SessionSnapshots() []SessionSnapshot {
	s.mu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	out := make([]SessionSnapshot, 0, len(live))
	for _, sess := range live {
		out = append(out, sess.snapshot())
	}
	return out
}

func (s *Server) reapLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.reapIdle(time.Now())
		}
	}
}

func (s *Server) reapIdle(now time.Time) {
	s.mu.Lock()
	live := make(map[string]*Session, len(s.sessions))
	for token, sess := range s.sessions {
		live[token] = sess
	}
	s.mu.Unlock()

	for token, sess := range live {
		if now.Sub(sess.idleSince()) <= s.cfg.SessionTimeout {
			continue
		}
		s.remove(token)
		sess.shutdown()
		observability.RecordSessionEvent(observability.SessionReaped)
		s.log.Info().Str("session", token).Msg("reaped idle session")
	}
}

func (s *Server) shutdownSessions() {
	s.mu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range live {
		sess.shutdown()
	}
}

// readHandshake reads until the first complete frame arrives. Frames decoded
// beyond the first are returned so no client bytes are lost.
func readHandshake(conn net.Conn, dec *frame.Decoder, timeout time.Duration) (frame.Frame, []frame.Frame, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() {
		_ = conn.SetReadDeadline(time.Time{})
	}()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return frame.Frame{}, nil, err
		}
		frames, err := dec.Decode(buf[:n])
		if err != nil {
			return frame.Frame{}, nil, err
		}
		if len(frames) > 0 {
			return frames[0], frames[1:], nil
		}
	}
}
