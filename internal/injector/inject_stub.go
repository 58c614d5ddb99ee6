//go:build !windows && !darwin

package injector

import "mouseshare/internal/event"

type stubPlatform struct{}

func newPlatform() platform { return &stubPlatform{} }

func (s *stubPlatform) init() error                                    { return nil }
func (s *stubPlatform) screenSize() (int32, int32)                     { return 1920, 1080 }
func (s *stubPlatform) moveAbsolute(x, y int32)                        {}
func (s *stubPlatform) button(b event.Button, pressed bool)            {}
func (s *stubPlatform) scroll(dx, dy int32)                            {}
func (s *stubPlatform) key(vk, scan, flags uint32, pressed bool)       {}
