package injector

import (
	"testing"

	"mouseshare/internal/event"
)

type fakePlatform struct {
	width, height int32
	movedX, movedY int32
	buttons        []event.Button
	scrolls        [][2]int32
	keys           []uint32
	flags          []uint32
}

func (f *fakePlatform) init() error                 { return nil }
func (f *fakePlatform) screenSize() (int32, int32)   { return f.width, f.height }
func (f *fakePlatform) moveAbsolute(x, y int32)      { f.movedX, f.movedY = x, y }
func (f *fakePlatform) button(b event.Button, pressed bool) { f.buttons = append(f.buttons, b) }
func (f *fakePlatform) scroll(dx, dy int32)          { f.scrolls = append(f.scrolls, [2]int32{dx, dy}) }
func (f *fakePlatform) key(vk, scan, flags uint32, pressed bool) {
	f.keys = append(f.keys, vk)
	f.flags = append(f.flags, flags)
}

func newTestInjector(w, h int32) (*Injector, *fakePlatform) {
	fp := &fakePlatform{width: w, height: h}
	return &Injector{platform: fp, width: w, height: h}, fp
}

func TestMoveAbsoluteClampsToScreen(t *testing.T) {
	inj, fp := newTestInjector(1920, 1080)

	inj.MoveAbsolute(-10, 2000)
	if fp.movedX != 0 || fp.movedY != 1079 {
		t.Errorf("clamped move = (%d,%d), want (0,1079)", fp.movedX, fp.movedY)
	}

	inj.MoveAbsolute(500, 500)
	if fp.movedX != 500 || fp.movedY != 500 {
		t.Errorf("move = (%d,%d), want (500,500)", fp.movedX, fp.movedY)
	}
}

func TestMoveRelativeAccumulatesFromLastPosition(t *testing.T) {
	inj, fp := newTestInjector(1920, 1080)
	inj.MoveAbsolute(100, 100)
	inj.MoveRelative(50, -200)
	if fp.movedX != 150 || fp.movedY != 0 {
		t.Errorf("relative move landed at (%d,%d), want (150,0)", fp.movedX, fp.movedY)
	}
}

func TestKeyPreservesExtendedFlag(t *testing.T) {
	inj, fp := newTestInjector(1920, 1080)
	inj.Key(0x25, 0x4B, event.ExtendedKeyFlag, true)
	if len(fp.flags) != 1 || fp.flags[0] != event.ExtendedKeyFlag {
		t.Errorf("flags = %v, want [%d]", fp.flags, event.ExtendedKeyFlag)
	}
}

func TestButtonAndScrollForwarded(t *testing.T) {
	inj, fp := newTestInjector(1920, 1080)
	inj.Button(event.ButtonRight, true)
	inj.Scroll(0, -3)
	if len(fp.buttons) != 1 || fp.buttons[0] != event.ButtonRight {
		t.Errorf("buttons = %v", fp.buttons)
	}
	if len(fp.scrolls) != 1 || fp.scrolls[0] != [2]int32{0, -3} {
		t.Errorf("scrolls = %v", fp.scrolls)
	}
}

func TestScreenSizeReportsPlatformValue(t *testing.T) {
	inj, _ := newTestInjector(1280, 720)
	w, h := inj.ScreenSize()
	if w != 1280 || h != 720 {
		t.Errorf("screen size = (%d,%d), want (1280,720)", w, h)
	}
}
