//go:build unix

package discovery

import (
	"context"
	"fmt"
	"net"
	"syscall"
)

// bindBroadcastSocket opens the discovery UDP socket with SO_REUSEADDR and
// SO_BROADCAST, adapted from the SO_REUSEADDR control-function pattern
// retrieved from the example pack's multicast listener, extended with the
// broadcast flag this protocol actually requires (it broadcasts rather
// than joining a multicast group).
func bindBroadcastSocket(port int) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var controlErr error
			err := c.Control(func(fd uintptr) {
				if controlErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); controlErr != nil {
					return
				}
				controlErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return controlErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
