// Package interceptor captures every physical mouse/keyboard event on the
// host it runs on and decides, per event, whether that event also reaches
// local applications. It is the platform-agnostic half of the global
// input-capture singleton; trap_windows.go and trap_stub.go supply the
// platform-specific hook installation this package drives.
package interceptor

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"mouseshare/internal/errs"
	"mouseshare/internal/event"
	"mouseshare/internal/hotkey"
)

// Virtual-key codes of the emergency keys and of their chord partners,
// matching the Windows VK_* values the rest of the wire protocol already
// speaks in. CTRL, ALT, DELETE, SCROLL_LOCK and WIN always propagate to the
// local OS regardless of suppress, so a stuck capture can never lock the
// user out; ESCAPE, TAB and F4 propagate only while completing their chord
// (see isEmergencyKey), and SHIFT never propagates on its own.
const (
	vkControl     uint32 = 0x11
	vkMenu        uint32 = 0x12 // ALT
	vkDelete      uint32 = 0x2E
	vkScrollLock  uint32 = 0x91
	vkLWin        uint32 = 0x5B
	vkRWin        uint32 = 0x5C
	vkShift       uint32 = 0x10
	vkEscape      uint32 = 0x1B
	vkTab         uint32 = 0x09
	vkF4          uint32 = 0x73
)

// SafetyTimeout is how long suppress may remain true with no input arriving
// at all before the interceptor auto-releases it, per the documented safety
// property that a dead remote must never strand local input.
const SafetyTimeout = 30 * time.Second

// hook is the platform-specific half: installing the low-level capture,
// tearing it down, and the two cursor primitives that only the OS can
// provide. One implementation exists per platform file (trap_windows.go,
// trap_stub.go elsewhere).
type hook interface {
	start(i *Interceptor) error
	stop()
	warpCursor(x, y int32)
	cursorPos() (int32, int32)
}

// Interceptor is the process-wide input-capture singleton described by the
// design notes' "global singleton interception" note: only one instance is
// meaningful per process, since only one low-level hook can own the OS
// capture at a time.
type Interceptor struct {
	hook    hook
	matcher *hotkey.Matcher

	suppress atomic.Bool
	running  atomic.Bool

	mu     sync.Mutex
	lastX  int32
	lastY  int32
	toggle uint32

	timerMu sync.Mutex
	timer   *time.Timer

	onMove   func(absX, absY, dx, dy int32)
	onButton func(b event.Button, pressed bool)
	onScroll func(dx, dy int32)
	onKey    func(vk, scan, flags uint32, pressed bool)
}

// New constructs an Interceptor. toggleVK is the configured user-toggle key
// (default F8), which is itself an emergency key so the user can always
// reach it even while suppressed.
func New(toggleVK uint32) *Interceptor {
	i := &Interceptor{toggle: toggleVK}
	i.matcher = hotkey.NewMatcher()
	i.registerEmergencyKeys()
	i.hook = newPlatformHook()
	return i
}

func (i *Interceptor) registerEmergencyKeys() {
	for _, vk := range []uint32{vkControl, vkMenu, vkDelete, vkScrollLock, vkLWin, vkRWin, i.toggle} {
		i.matcher.Register(vkName(vk), nil)
	}
	i.matcher.Register(vkName(vkControl)+"+"+vkName(vkShift)+"+"+vkName(vkEscape), nil)
	i.matcher.Register(vkName(vkMenu)+"+"+vkName(vkTab), nil)
	i.matcher.Register(vkName(vkMenu)+"+"+vkName(vkF4), nil)
	i.matcher.Register(vkName(vkControl)+"+"+vkName(vkMenu)+"+"+vkName(vkEscape), func() { i.SetSuppress(false) })
}

func vkName(vk uint32) string {
	return fmt.Sprintf("VK%d", vk)
}

// isEmergencyKey reports whether vk must propagate to the local OS on its
// own. Per §4.1 the single-key emergency set is CTRL, ALT, DELETE,
// SCROLL_LOCK, WIN, and the configured user-toggle key — those always propagate
// bare. ESCAPE, TAB, and F4 are not on that list: they only propagate when
// they are completing one of the documented chords (CTRL+SHIFT+ESC,
// ALT+TAB, ALT+F4), i.e. their modifier partner is actually held down right
// now. A bare Escape/Tab/F4/Shift press while suppressed is ordinary
// suppressed input, not an emergency release.
func (i *Interceptor) isEmergencyKey(vk uint32) bool {
	switch vk {
	case vkControl, vkMenu, vkDelete, vkScrollLock, vkLWin, vkRWin:
		return true
	}
	if vk == i.toggle {
		return true
	}
	switch vk {
	case vkEscape:
		return i.matcher.IsDown(vkName(vkControl)) && i.matcher.IsDown(vkName(vkShift))
	case vkTab, vkF4:
		return i.matcher.IsDown(vkName(vkMenu))
	}
	return false
}

// OnMove, OnButton, OnScroll, OnKey register the four callbacks. App Glue
// wires these to the active focus controller's corresponding methods.
func (i *Interceptor) OnMove(f func(absX, absY, dx, dy int32))          { i.onMove = f }
func (i *Interceptor) OnButton(f func(b event.Button, pressed bool))    { i.onButton = f }
func (i *Interceptor) OnScroll(f func(dx, dy int32))                    { i.onScroll = f }
func (i *Interceptor) OnKey(f func(vk, scan, flags uint32, pressed bool)) { i.onKey = f }

// Start installs the platform hook and arms the safety timer.
func (i *Interceptor) Start() error {
	if !i.running.CompareAndSwap(false, true) {
		return nil
	}
	if err := i.hook.start(i); err != nil {
		i.running.Store(false)
		return fmt.Errorf("%w: %v", errs.ErrHookInstall, err)
	}
	i.armSafetyTimer()
	return nil
}

// Stop tears down the hook and disarms the safety timer.
func (i *Interceptor) Stop() {
	if !i.running.CompareAndSwap(true, false) {
		return
	}
	i.timerMu.Lock()
	if i.timer != nil {
		i.timer.Stop()
	}
	i.timerMu.Unlock()
	i.hook.stop()
}

// SetSuppress toggles whether captured events reach local applications.
func (i *Interceptor) SetSuppress(v bool) {
	i.suppress.Store(v)
	if v {
		i.armSafetyTimer()
	}
}

// Suppressed reports the current suppress state.
func (i *Interceptor) Suppressed() bool { return i.suppress.Load() }

// WarpCursor moves the physical cursor, delegating to the platform hook.
func (i *Interceptor) WarpCursor(x, y int32) { i.hook.warpCursor(x, y) }

// CursorPos returns the physical cursor position.
func (i *Interceptor) CursorPos() (int32, int32) { return i.hook.cursorPos() }

func (i *Interceptor) armSafetyTimer() {
	i.timerMu.Lock()
	defer i.timerMu.Unlock()
	if i.timer != nil {
		i.timer.Stop()
	}
	i.timer = time.AfterFunc(SafetyTimeout, func() { i.SetSuppress(false) })
}

// recoverHookCallback guards one invocation of an App Glue callback from the
// hook thread, matching the teacher's recoverMiddleware: a panic in the
// focus controller or whatever else App Glue wired in must not take down
// the OS hook thread (and, on Windows, the hook-owning process along with
// it), per the ambient error-handling policy.
func recoverHookCallback(which string) {
	if r := recover(); r != nil {
		log.Printf("interceptor: PANIC RECOV in %s callback: %v", which, r)
	}
}

// deliverMove is called by the platform hook on every raw mouse move. It
// owns the last_x,last_y / suppress invariant: a move consumed by the OS
// while suppressed never updates last_{x,y}, so dx,dy stay meaningful
// relative to the last position actually delivered.
func (i *Interceptor) deliverMove(absX, absY int32) {
	i.resetSafetyTimer()

	i.mu.Lock()
	dx := absX - i.lastX
	dy := absY - i.lastY
	suppressed := i.suppress.Load()
	if !suppressed {
		i.lastX, i.lastY = absX, absY
	}
	i.mu.Unlock()

	if i.onMove != nil {
		func() {
			defer recoverHookCallback("onMove")
			i.onMove(absX, absY, dx, dy)
		}()
	}
}

func (i *Interceptor) deliverButton(b event.Button, pressed bool) {
	i.resetSafetyTimer()
	if i.onButton != nil {
		func() {
			defer recoverHookCallback("onButton")
			i.onButton(b, pressed)
		}()
	}
}

func (i *Interceptor) deliverScroll(dx, dy int32) {
	i.resetSafetyTimer()
	if i.onScroll != nil {
		func() {
			defer recoverHookCallback("onScroll")
			i.onScroll(dx, dy)
		}()
	}
}

// deliverKey is called by the platform hook for every key transition. It
// returns true if the key event must propagate to the local OS: suppress is
// off, or the key participates in the emergency set.
func (i *Interceptor) deliverKey(vk, scan, flags uint32, pressed bool) bool {
	i.resetSafetyTimer()
	if pressed {
		i.matcher.KeyEvent(vkName(vk), true)
	} else {
		i.matcher.KeyEvent(vkName(vk), false)
	}

	if i.onKey != nil {
		func() {
			defer recoverHookCallback("onKey")
			i.onKey(vk, scan, flags, pressed)
		}()
	}

	return !i.suppress.Load() || i.isEmergencyKey(vk)
}

func (i *Interceptor) resetSafetyTimer() {
	if i.suppress.Load() {
		i.armSafetyTimer()
	}
}

// SetLastPos seeds last_x,last_y, used by App Glue right after Start so the
// first delivered move doesn't report a spurious jump from (0,0).
func (i *Interceptor) SetLastPos(x, y int32) {
	i.mu.Lock()
	i.lastX, i.lastY = x, y
	i.mu.Unlock()
}
