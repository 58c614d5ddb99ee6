//go:build windows

package injector

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"mouseshare/internal/event"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseEventMove       = 0x0001
	mouseEventAbsolute   = 0x8000
	mouseEventLeftDown   = 0x0002
	mouseEventLeftUp     = 0x0004
	mouseEventRightDown  = 0x0008
	mouseEventRightUp    = 0x0010
	mouseEventMiddleDown = 0x0020
	mouseEventMiddleUp   = 0x0040
	mouseEventXDown      = 0x0080
	mouseEventXUp        = 0x0100
	mouseEventWheel      = 0x0800
	mouseEventHWheel     = 0x1000

	keyEventExtendedKey = 0x0001
	keyEventKeyUp       = 0x0002

	xButton1 = 0x0001
	xButton2 = 0x0002

	smCXScreen = 0
	smCYScreen = 1
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

type mouseInput struct {
	Dx, Dy      int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keybdInput struct {
	Vk          uint16
	Scan        uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input mirrors the Windows INPUT union on 64-bit Windows; Payload is sized
// for the larger member, mouseInput (32 bytes), and keybdInput (24 bytes)
// fits inside it.
type input struct {
	Type    uint32
	_       uint32
	Payload [32]byte
}

func sendMouseInput(flags uint32, dx, dy int32, data uint32) {
	mi := mouseInput{Dx: dx, Dy: dy, MouseData: data, DwFlags: flags}
	var in input
	in.Type = inputMouse
	*(*mouseInput)(unsafe.Pointer(&in.Payload[0])) = mi
	procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
}

func sendKeyInput(vk, scan uint16, flags uint32) {
	ki := keybdInput{Vk: vk, Scan: scan, DwFlags: flags}
	var in input
	in.Type = inputKeyboard
	*(*keybdInput)(unsafe.Pointer(&in.Payload[0])) = ki
	procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
}

type windowsPlatform struct {
	width, height int32
}

func newPlatform() platform { return &windowsPlatform{} }

func (w *windowsPlatform) init() error {
	cx, _, _ := procGetSystemMetrics.Call(uintptr(smCXScreen))
	cy, _, _ := procGetSystemMetrics.Call(uintptr(smCYScreen))
	w.width, w.height = int32(cx), int32(cy)
	return nil
}

func (w *windowsPlatform) screenSize() (int32, int32) { return w.width, w.height }

// moveAbsolute issues an absolute SendInput move. Coordinates are scaled
// to the 0-65535 normalized range SendInput requires for MOUSEEVENTF_ABSOLUTE.
func (w *windowsPlatform) moveAbsolute(x, y int32) {
	nx := scaleToNormalized(x, w.width)
	ny := scaleToNormalized(y, w.height)
	sendMouseInput(mouseEventMove|mouseEventAbsolute, nx, ny, 0)
}

func scaleToNormalized(v, max int32) int32 {
	if max <= 1 {
		return 0
	}
	return v * 65535 / (max - 1)
}

func (w *windowsPlatform) button(b event.Button, pressed bool) {
	var flags uint32
	var data uint32
	switch b {
	case event.ButtonLeft:
		if pressed {
			flags = mouseEventLeftDown
		} else {
			flags = mouseEventLeftUp
		}
	case event.ButtonRight:
		if pressed {
			flags = mouseEventRightDown
		} else {
			flags = mouseEventRightUp
		}
	case event.ButtonMiddle:
		if pressed {
			flags = mouseEventMiddleDown
		} else {
			flags = mouseEventMiddleUp
		}
	case event.ButtonX1, event.ButtonX2:
		if pressed {
			flags = mouseEventXDown
		} else {
			flags = mouseEventXUp
		}
		if b == event.ButtonX1 {
			data = xButton1
		} else {
			data = xButton2
		}
	}
	sendMouseInput(flags, 0, 0, data)
}

func (w *windowsPlatform) scroll(dx, dy int32) {
	if dy != 0 {
		sendMouseInput(mouseEventWheel, 0, 0, uint32(dy))
	}
	if dx != 0 {
		sendMouseInput(mouseEventHWheel, 0, 0, uint32(dx))
	}
}

// key injects a keyboard event, preserving the extended-key flag bit
// verbatim: bit 0 of flags maps directly to KEYEVENTF_EXTENDEDKEY.
func (w *windowsPlatform) key(vk, scan, flags uint32, pressed bool) {
	var kf uint32
	if flags&1 != 0 {
		kf |= keyEventExtendedKey
	}
	if !pressed {
		kf |= keyEventKeyUp
	}
	sendKeyInput(uint16(vk), uint16(scan), kf)
}
