//go:build unix

package transport

import (
	"context"
	"net"
	"syscall"
)

// listenWithReuseAddr binds the session listener with SO_REUSEADDR, adapted
// from the SO_REUSEADDR control-function pattern used for the discovery
// socket elsewhere in the retrieved example pack, applied here to the
// session's TCP listener instead of a UDP packet connection.
func listenWithReuseAddr(address string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var controlErr error
			err := c.Control(func(fd uintptr) {
				controlErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return controlErr
		},
	}
	return lc.Listen(context.Background(), "tcp", address)
}
