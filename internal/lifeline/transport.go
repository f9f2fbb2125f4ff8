package lifeline

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

// Transport is one underlying connection. Exactly one transport is
// authoritative at a time; the socket discards events from superseded
// instances.
type Transport interface {
	// Send transmits one complete binary message. Non-blocking best effort;
	// an error means the transport is faulted.
	Send(data []byte) error
	Close() error
}

// EventSink receives transport notifications. An error notification implies
// an imminent close; the socket does not rely on receiving both.
type EventSink interface {
	Message(data []byte)
	Closed()
	Errored(err error)
}

// Dialer establishes a transport toward target. Dial blocks until the
// transport is ready to send (bounded by the dialer's own timeout) and the
// transport reports its lifecycle on sink from then on.
type Dialer interface {
	Dial(ctx context.Context, target string, sink EventSink) (Transport, error)
}

// defaultDialer picks a transport from the target scheme: ws:// and wss://
// use the websocket dialer, anything else is a raw TCP address.
func defaultDialer(target string, cfg Config) Dialer {
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		return WSDialer{HandshakeTimeout: cfg.ConnectTimeout}
	}
	return TCPDialer{Timeout: cfg.ConnectTimeout}
}

// TCPDialer connects over plain TCP. Bytes arrive at arbitrary boundaries;
// the frame decoder reassembles them.
type TCPDialer struct {
	Timeout        time.Duration
	ReadBufferSize int
}

func (d TCPDialer) Dial(ctx context.Context, target string, sink EventSink) (Transport, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, err
	}
	size := d.ReadBufferSize
	if size <= 0 {
		size = 4096
	}
	t := &tcpTransport{conn: conn}
	go t.readLoop(sink, size)
	return t, nil
}

type tcpTransport struct {
	conn   net.Conn
	closed atomic.Bool
}

func (t *tcpTransport) Send(data []byte) error {
	_, err := t.conn.Write(data)
	return err
}

func (t *tcpTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close()
}

func (t *tcpTransport) readLoop(sink EventSink, size int) {
	buf := make([]byte, size)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			sink.Message(data)
		}
		if err != nil {
			if t.closed.Load() || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				sink.Closed()
			} else {
				sink.Errored(err)
			}
			return
		}
	}
}
