package lifeline

import "github.com/mudlink/lifeline/internal/protocol/control"

// phase is the logical session lifecycle. It distinguishes "never opened"
// from "closed after opening", which decide whether a terminal failure is
// reported as an error or as a close.
type phase int

const (
	// phaseFresh: connecting (or retrying) before the application has ever
	// observed an open.
	phaseFresh phase = iota
	// phaseActiveOpen: a transport is open and authoritative.
	phaseActiveOpen
	// phaseActiveReconnecting: the session was open and a replacement
	// transport is being established.
	phaseActiveReconnecting
	// phaseTerminated: the session ended permanently; no reconnects follow.
	phaseTerminated
)

func (p phase) String() string {
	switch p {
	case phaseFresh:
		return "fresh"
	case phaseActiveOpen:
		return "active_open"
	case phaseActiveReconnecting:
		return "active_reconnecting"
	case phaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// session carries everything that survives transport replacement: the token,
// the cumulative received-byte count, and the lifecycle phase. bytesReceived
// only ever grows; it is the offset the bouncer resumes delivery from.
type session struct {
	token         string
	bytesReceived uint64
	phase         phase
}

// handshake builds the control message sent first on every fresh transport:
// a resume request when a token is held, otherwise an empty new-session
// request.
func (s *session) handshake() control.Message {
	if s.token == "" {
		return control.Message{}
	}
	return control.ResumeMessage(s.token, s.bytesReceived)
}

// noteData accounts one delivered Data payload and returns the updated count.
func (s *session) noteData(n int) uint64 {
	s.bytesReceived += uint64(n)
	return s.bytesReceived
}

// applyControl folds a peer control message into session state and reports
// whether the peer terminated the session.
func (s *session) applyControl(msg control.Message) bool {
	if msg.Session != "" {
		s.token = msg.Session
	}
	if msg.Error != "" {
		s.phase = phaseTerminated
		return true
	}
	return false
}
