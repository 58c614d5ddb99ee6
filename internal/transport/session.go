// Package transport implements the session between a primary and a
// secondary: one reliable TCP connection per session, with the socket
// options, application-level keepalive, and reconnect discipline the
// session transport component specifies. The socket-option contract
// (TCP_NODELAY on both the connecting and the accepted socket, SO_REUSEADDR
// on the listener) is ported from the reference implementation's Socket
// class rather than invented.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"mouseshare/internal/errs"
	"mouseshare/internal/event"
	"mouseshare/internal/protocol"
)

// State is the Session lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Role distinguishes which side of the session this process is.
type Role uint8

const (
	RolePrimary Role = iota
	RoleSecondary
)

// ErrTimeout is returned by RecvFrame when the deadline passes with no
// frame available; the read buffer still holds no partial bytes consumed.
var ErrTimeout = errors.New("transport: recv timeout")

// ErrClosed is returned by Send/RecvFrame once the session has transitioned
// to CLOSED.
var ErrClosed = errors.New("transport: session closed")

// Session wraps one TCP connection. Writes are serialized by sendMu, and
// closing runs once through closeOnce without taking sendMu. sendMu is the
// "send lock" the concurrency model names: acquired
// only for the duration of one send, never while any other lock this
// process holds is held, and never while invoking the interceptor's
// set_suppress.
type Session struct {
	conn net.Conn
	role Role

	state    atomic.Int32
	lastRecv atomic.Int64 // unix nano
	lastSend atomic.Int64

	sendMu sync.Mutex
	recvMu sync.Mutex

	closeOnce sync.Once
}

func newSession(conn net.Conn, role Role) *Session {
	s := &Session{conn: conn, role: role}
	now := time.Now().UnixNano()
	s.lastRecv.Store(now)
	s.lastSend.Store(now)
	s.state.Store(int32(StateOpen))
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Role reports whether this session is the primary or secondary side.
func (s *Session) Role() Role {
	return s.role
}

// RemoteIP returns the IP address of the peer on the other end of the
// connection, used by App Glue to match a session back to the topology
// peer discovery upserted under the same address.
func (s *Session) RemoteIP() string {
	host, _, err := net.SplitHostPort(s.conn.RemoteAddr().String())
	if err != nil {
		return s.conn.RemoteAddr().String()
	}
	return host
}

// Send serializes and writes one event as a single frame. Send is
// fire-and-forget: the caller does not learn success beyond the returned
// error, and a partial write or any write error transitions the session to
// CLOSED immediately, since TCP gives no way to retry a partial frame
// without resynchronizing the stream.
func (s *Session) Send(e event.Event) error {
	if s.State() != StateOpen {
		return ErrClosed
	}
	frame, err := protocol.Encode(e, uint32(time.Now().UnixMilli()))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrSendFailed, err)
	}

	s.sendMu.Lock()
	n, err := s.conn.Write(frame)
	s.sendMu.Unlock()

	if err != nil || n != len(frame) {
		s.closeLocked()
		if err == nil {
			err = fmt.Errorf("partial write: %d of %d bytes", n, len(frame))
		}
		return fmt.Errorf("%w: %v", errs.ErrSendFailed, err)
	}
	s.lastSend.Store(time.Now().UnixNano())
	return nil
}

// RecvFrame blocks until a frame arrives, the deadline passes, or the
// session closes. On timeout it returns ErrTimeout having consumed no
// application-level bytes (the header read, if partially started, is still
// protected by SetReadDeadline semantics: a timed-out read on a stream
// socket is documented by net.Conn to leave the connection usable for a
// subsequent read with a fresh deadline, so no frame data is lost — the
// decoder simply has not seen a full frame yet).
func (s *Session) RecvFrame(deadline time.Time) (event.Event, error) {
	if s.State() != StateOpen {
		return event.Event{}, ErrClosed
	}

	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return event.Event{}, err
	}

	var header [protocol.HeaderSize]byte
	if _, err := readFull(s.conn, header[:]); err != nil {
		if isTimeout(err) {
			return event.Event{}, ErrTimeout
		}
		s.closeLocked()
		return event.Event{}, fmt.Errorf("%w: %v", errs.ErrRecvFailed, err)
	}

	h, err := protocol.DecodeHeader(header[:])
	if err != nil {
		s.closeLocked()
		return event.Event{}, fmt.Errorf("%w: %v", errs.ErrMalformedFrame, err)
	}

	payload := make([]byte, h.PayloadSize)
	if len(payload) > 0 {
		if _, err := readFull(s.conn, payload); err != nil {
			if isTimeout(err) {
				return event.Event{}, ErrTimeout
			}
			s.closeLocked()
			return event.Event{}, fmt.Errorf("%w: %v", errs.ErrRecvFailed, err)
		}
	}

	e, err := protocol.DecodePayload(h.Type, payload)
	if errors.Is(err, protocol.ErrUnknownType) {
		s.lastRecv.Store(time.Now().UnixNano())
		return event.Event{}, err
	}
	if err != nil {
		s.closeLocked()
		return event.Event{}, fmt.Errorf("%w: %v", errs.ErrMalformedFrame, err)
	}

	s.lastRecv.Store(time.Now().UnixNano())
	return e, nil
}

// LastSend and LastRecv expose the liveness clocks the maintenance loop
// checks for keepalive emission and idle-timeout detection.
func (s *Session) LastSend() time.Time { return time.Unix(0, s.lastSend.Load()) }
func (s *Session) LastRecv() time.Time { return time.Unix(0, s.lastRecv.Load()) }

// Close transitions the session to CLOSED and closes the underlying socket,
// unblocking any in-flight RecvFrame.
func (s *Session) Close() error {
	s.closeLocked()
	return nil
}

func (s *Session) closeLocked() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.conn.Close()
	})
}

// Maintain runs the application-level keepalive and idle-timeout checks
// described in §4.4 until ctx is canceled or the session closes. It is
// meant to run on the session's dedicated network thread/goroutine. onIdle,
// if non-nil, is called once with an errs.ErrIdleTimeout-wrapped error when
// Maintain itself closes the session for silence, so the caller can log the
// specific error kind §7 calls for instead of only observing a closed
// session after the fact.
func (s *Session) Maintain(ctx context.Context, keepaliveInterval, idleTimeout time.Duration, onIdle func(error)) {
	period := keepaliveInterval / 2
	if idleTimeout/2 < period {
		period = idleTimeout / 2
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.State() != StateOpen {
				return
			}
			if time.Since(s.LastRecv()) > idleTimeout {
				s.closeLocked()
				if onIdle != nil {
					onIdle(fmt.Errorf("%w: no frame received in %s", errs.ErrIdleTimeout, idleTimeout))
				}
				return
			}
			if time.Since(s.LastSend()) >= keepaliveInterval {
				_ = s.Send(event.Keepalive())
			}
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Listen opens the primary's listening socket with SO_REUSEADDR set.
func Listen(port int) (net.Listener, error) {
	ln, err := listenWithReuseAddr(fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAddressResolve, err)
	}
	return ln, nil
}

// Accept blocks for one incoming connection and wraps it as a primary-role
// Session, applying TCP_NODELAY and OS-level keepalive to the accepted
// socket — the reference implementation's Socket::accept() applies
// TCP_NODELAY a second time here for the same reason: the option is a
// per-socket property, not inherited from the listener.
func Accept(ln net.Listener) (*Session, error) {
	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRecvFailed, err)
	}
	if err := tuneConn(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return newSession(conn, RolePrimary), nil
}

// Connect dials the primary from the secondary, applying the same socket
// options, and fails with a typed error distinguishing refusal from
// timeout so the caller's reconnect loop can log accordingly (both are
// locally recoverable per §7).
func Connect(ctx context.Context, host string, port int, timeout time.Duration) (*Session, error) {
	dialer := net.Dialer{Timeout: timeout}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, fmt.Errorf("%w: %v", errs.ErrConnectionTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrConnectionRefused, err)
	}
	if err := tuneConn(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return newSession(conn, RoleSecondary), nil
}

func tuneConn(conn net.Conn) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcp.SetNoDelay(true); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrAddressResolve, err)
	}
	if err := tcp.SetKeepAlive(true); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrAddressResolve, err)
	}
	_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	return nil
}
