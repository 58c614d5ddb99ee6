// Package injector replays decoded input events against the local OS on
// the secondary side of a session. It implements C2: init, screen size,
// clamped absolute/relative moves, buttons, scroll, and key injection,
// preserving the extended-key flag bit verbatim since it is opaque above
// the platform input APIs.
package injector

import (
	"fmt"
	"sync"

	"mouseshare/internal/errs"
	"mouseshare/internal/event"
)

// platform is the OS-specific half: one implementation per platform file
// (inject_darwin.go, inject_windows.go, inject_stub.go elsewhere).
type platform interface {
	init() error
	screenSize() (int32, int32)
	moveAbsolute(x, y int32)
	button(b event.Button, pressed bool)
	scroll(dx, dy int32)
	key(vk, scan, flags uint32, pressed bool)
}

// Injector is the platform-agnostic input-replay singleton, analogous to
// Interceptor on the capture side.
type Injector struct {
	mu       sync.Mutex
	platform platform
	lastX    int32
	lastY    int32
	width    int32
	height   int32
}

// LocalScreenSize reports the local screen's pixel dimensions without
// constructing a full Injector, for hosts (the primary) that need their own
// screen size for topology and focus but never replay events locally.
func LocalScreenSize() (int32, int32, error) {
	p := newPlatform()
	if err := p.init(); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errs.ErrInjectorInit, err)
	}
	w, h := p.screenSize()
	return w, h, nil
}

// New constructs an Injector and initializes the platform backend.
func New() (*Injector, error) {
	p := newPlatform()
	if err := p.init(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInjectorInit, err)
	}
	w, h := p.screenSize()
	return &Injector{platform: p, width: w, height: h}, nil
}

// ScreenSize returns the local screen dimensions reported by the platform.
func (inj *Injector) ScreenSize() (int32, int32) {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	return inj.width, inj.height
}

func clampCoord(v, max int32) int32 {
	if v < 0 {
		return 0
	}
	if v > max-1 {
		return max - 1
	}
	return v
}

// MoveAbsolute moves the cursor to (x,y), clamped to the local screen.
func (inj *Injector) MoveAbsolute(x, y int32) {
	inj.mu.Lock()
	x = clampCoord(x, inj.width)
	y = clampCoord(y, inj.height)
	inj.lastX, inj.lastY = x, y
	inj.mu.Unlock()
	inj.platform.moveAbsolute(x, y)
}

// MoveRelative applies a delta to the last injected position, clamped to
// the local screen.
func (inj *Injector) MoveRelative(dx, dy int32) {
	inj.mu.Lock()
	x := clampCoord(inj.lastX+dx, inj.width)
	y := clampCoord(inj.lastY+dy, inj.height)
	inj.lastX, inj.lastY = x, y
	inj.mu.Unlock()
	inj.platform.moveAbsolute(x, y)
}

// Button injects a mouse button transition.
func (inj *Injector) Button(b event.Button, pressed bool) { inj.platform.button(b, pressed) }

// Scroll injects a scroll-wheel event.
func (inj *Injector) Scroll(dx, dy int32) { inj.platform.scroll(dx, dy) }

// Key injects a keyboard transition, preserving flags (including the
// extended-key bit) verbatim.
func (inj *Injector) Key(vk, scan, flags uint32, pressed bool) {
	inj.platform.key(vk, scan, flags, pressed)
}
