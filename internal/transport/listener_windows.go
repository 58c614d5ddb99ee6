//go:build windows

package transport

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/windows"
)

// listenWithReuseAddr mirrors listener_unix.go's SO_REUSEADDR setup using
// the Windows socket option constants from golang.org/x/sys/windows, the
// same package the teacher uses for its other Windows-specific syscalls.
func listenWithReuseAddr(address string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var controlErr error
			err := c.Control(func(fd uintptr) {
				controlErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return controlErr
		},
	}
	return lc.Listen(context.Background(), "tcp", address)
}
