package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"mouseshare/internal/errs"
	"mouseshare/internal/event"
)

// localPair returns two Sessions connected over a real loopback TCP socket,
// since Session assumes a *net.TCPConn for socket-option tuning elsewhere
// but operates on the net.Conn interface for send/recv.
func localPair(t *testing.T) (*Session, *Session) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverCh := make(chan *Session, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverCh <- nil
			return
		}
		serverCh <- newSession(conn, RolePrimary)
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	client := newSession(clientConn, RoleSecondary)
	server := <-serverCh
	if server == nil {
		t.Fatal("accept failed")
	}
	return server, client
}

func TestSendRecvRoundTrip(t *testing.T) {
	a, b := localPair(t)
	defer a.Close()
	defer b.Close()

	want := event.MouseMove(100, 200, 5, -5)
	if err := a.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := b.RecvFrame(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("RecvFrame: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRecvFrameTimesOutWithoutConsumingBytes(t *testing.T) {
	a, b := localPair(t)
	defer a.Close()
	defer b.Close()

	_, err := b.RecvFrame(time.Now().Add(50 * time.Millisecond))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatal("a timeout must not close the session")
	}

	want := event.Keepalive()
	if err := a.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := b.RecvFrame(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("RecvFrame after timeout: %v", err)
	}
	if got.Type != want.Type {
		t.Errorf("got %v, want %v", got.Type, want.Type)
	}
}

func TestCloseUnblocksRecv(t *testing.T) {
	a, b := localPair(t)
	defer a.Close()

	done := make(chan error, 1)
	go func() {
		_, err := b.RecvFrame(time.Now().Add(5 * time.Second))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error once the session is closed")
		}
	case <-time.After(time.Second):
		t.Fatal("RecvFrame did not unblock after Close")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	a, b := localPair(t)
	defer b.Close()

	a.Close()
	if err := a.Send(event.Keepalive()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMaintainEmitsKeepaliveWhenIdle(t *testing.T) {
	a, b := localPair(t)
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Maintain(ctx, 30*time.Millisecond, time.Minute, nil)

	got, err := b.RecvFrame(time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("RecvFrame: %v", err)
	}
	if got.Type != event.TypeKeepalive {
		t.Errorf("got %v, want Keepalive", got.Type)
	}
}

func TestMaintainClosesOnIdleTimeout(t *testing.T) {
	a, b := localPair(t)
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var idleErr error
	go b.Maintain(ctx, time.Minute, 30*time.Millisecond, func(err error) { idleErr = err })

	time.Sleep(100 * time.Millisecond)
	if b.State() != StateClosed {
		t.Errorf("expected session CLOSED after idle timeout, got %v", b.State())
	}
	if !errors.Is(idleErr, errs.ErrIdleTimeout) {
		t.Errorf("expected ErrIdleTimeout, got %v", idleErr)
	}
}
