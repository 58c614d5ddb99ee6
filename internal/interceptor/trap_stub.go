//go:build !windows

package interceptor

import "fmt"

// stubHook reports failure on start; non-Windows global input capture is
// not implemented, matching the reference codebase's own stub split for
// platforms it doesn't support.
type stubHook struct{}

func newPlatformHook() hook { return &stubHook{} }

func (s *stubHook) start(i *Interceptor) error {
	return fmt.Errorf("input capture is not supported on this platform")
}

func (s *stubHook) stop() {}

func (s *stubHook) warpCursor(x, y int32) {}

func (s *stubHook) cursorPos() (int32, int32) { return 0, 0 }
