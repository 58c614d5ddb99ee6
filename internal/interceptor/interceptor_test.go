package interceptor

import (
	"testing"
	"time"

	"mouseshare/internal/event"
)

// fakeHook lets tests drive deliverMove/deliverButton/deliverKey directly
// without a real OS hook.
type fakeHook struct {
	started bool
	warpedX, warpedY int32
}

func (f *fakeHook) start(i *Interceptor) error { f.started = true; return nil }
func (f *fakeHook) stop()                      { f.started = false }
func (f *fakeHook) warpCursor(x, y int32)      { f.warpedX, f.warpedY = x, y }
func (f *fakeHook) cursorPos() (int32, int32)  { return f.warpedX, f.warpedY }

func newTestInterceptor(toggleVK uint32) (*Interceptor, *fakeHook) {
	i := New(toggleVK)
	fh := &fakeHook{}
	i.hook = fh
	return i, fh
}

func TestMoveInvariantSuppressedDoesNotAdvanceLastPos(t *testing.T) {
	i, _ := newTestInterceptor(vkScrollLock)
	var gotDX, gotDY int32
	i.OnMove(func(absX, absY, dx, dy int32) { gotDX, gotDY = dx, dy })

	i.SetLastPos(100, 100)
	i.SetSuppress(true)

	i.deliverMove(110, 100) // consumed by OS, not delivered
	if gotDX != 10 {
		t.Fatalf("first delta = %d, want 10", gotDX)
	}

	i.deliverMove(130, 100) // still relative to the last *delivered* pos, 100
	if gotDX != 30 {
		t.Fatalf("second delta = %d, want 30 (measured from the undisturbed last-delivered position)", gotDX)
	}
	_ = gotDY
}

func TestMoveUnsuppressedAdvancesLastPos(t *testing.T) {
	i, _ := newTestInterceptor(vkScrollLock)
	var gotDX int32
	i.OnMove(func(absX, absY, dx, dy int32) { gotDX = dx })
	i.SetLastPos(0, 0)

	i.deliverMove(10, 0)
	if gotDX != 10 {
		t.Fatalf("delta = %d, want 10", gotDX)
	}
	i.deliverMove(15, 0)
	if gotDX != 5 {
		t.Fatalf("delta = %d, want 5 once last pos tracks delivered moves", gotDX)
	}
}

func TestEmergencyKeyAlwaysPropagates(t *testing.T) {
	i, _ := newTestInterceptor(vkScrollLock)
	i.SetSuppress(true)

	if !i.deliverKey(vkControl, 0, 0, true) {
		t.Error("CTRL must propagate even while suppressed")
	}
	if i.deliverKey(0x41, 0, 0, true) { // plain 'A', not emergency
		t.Error("a non-emergency key must not propagate while suppressed")
	}
}

func TestBareEscapeTabF4DoNotPropagateWhileSuppressed(t *testing.T) {
	i, _ := newTestInterceptor(vkScrollLock)
	i.SetSuppress(true)

	if i.deliverKey(vkEscape, 0, 0, true) {
		t.Error("bare Escape must not propagate while suppressed; only CTRL+SHIFT+ESC does")
	}
	if i.deliverKey(vkTab, 0, 0, true) {
		t.Error("bare Tab must not propagate while suppressed; only ALT+TAB does")
	}
	if i.deliverKey(vkF4, 0, 0, true) {
		t.Error("bare F4 must not propagate while suppressed; only ALT+F4 does")
	}
}

func TestEscapeTabF4PropagateAsPartOfTheirChord(t *testing.T) {
	i, _ := newTestInterceptor(vkScrollLock)
	i.SetSuppress(true)

	i.deliverKey(vkControl, 0, 0, true)
	i.deliverKey(vkShift, 0, 0, true)
	if !i.deliverKey(vkEscape, 0, 0, true) {
		t.Error("Escape must propagate as the completing key of CTRL+SHIFT+ESC")
	}

	i.deliverKey(vkControl, 0, 0, false)
	i.deliverKey(vkShift, 0, 0, false)
	i.deliverKey(vkMenu, 0, 0, true)
	if !i.deliverKey(vkTab, 0, 0, true) {
		t.Error("Tab must propagate as the completing key of ALT+TAB")
	}
	if !i.deliverKey(vkF4, 0, 0, true) {
		t.Error("F4 must propagate as the completing key of ALT+F4")
	}
}

func TestCtrlAltEscForcesSuppressOff(t *testing.T) {
	i, _ := newTestInterceptor(vkScrollLock)
	i.SetSuppress(true)

	i.deliverKey(vkControl, 0, 0, true)
	i.deliverKey(vkMenu, 0, 0, true)
	i.deliverKey(vkEscape, 0, 0, true)

	if i.Suppressed() {
		t.Error("CTRL+ALT+ESC must force suppress off as a panic release")
	}
}

func TestSafetyTimerReleasesSuppress(t *testing.T) {
	i, _ := newTestInterceptor(vkScrollLock)
	orig := SafetyTimeout
	_ = orig
	i.SetSuppress(true)
	// SetSuppress(true) armed the safety timer for SafetyTimeout. Reset on a
	// time.AfterFunc timer reschedules the same release function, so the
	// timer fires after 1ms here without changing the exported constant.
	i.timerMu.Lock()
	i.timer.Reset(time.Millisecond)
	i.timerMu.Unlock()
	deadline := time.Now().Add(time.Second)
	for i.Suppressed() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if i.Suppressed() {
		t.Fatal("expected suppress to be released")
	}
}

func TestButtonEmitsEvent(t *testing.T) {
	i, _ := newTestInterceptor(vkScrollLock)
	var got event.Button
	var gotPressed bool
	i.OnButton(func(b event.Button, pressed bool) { got, gotPressed = b, pressed })

	i.deliverButton(event.ButtonLeft, true)
	if got != event.ButtonLeft || !gotPressed {
		t.Errorf("got button=%v pressed=%v", got, gotPressed)
	}
}

func TestStartStopDelegatesToHook(t *testing.T) {
	i, fh := newTestInterceptor(vkScrollLock)
	if err := i.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !fh.started {
		t.Fatal("expected the hook to be started")
	}
	i.Stop()
	if fh.started {
		t.Fatal("expected the hook to be stopped")
	}
}

func TestWarpCursorDelegatesToHook(t *testing.T) {
	i, fh := newTestInterceptor(vkScrollLock)
	i.WarpCursor(42, 43)
	if fh.warpedX != 42 || fh.warpedY != 43 {
		t.Errorf("warp = (%d,%d), want (42,43)", fh.warpedX, fh.warpedY)
	}
	time.Sleep(time.Millisecond) // avoid racing the safety timer's own AfterFunc goroutine in -race runs
}
