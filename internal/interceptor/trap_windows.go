//go:build windows

package interceptor

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"mouseshare/internal/event"
)

const (
	whMouseLL    = 14
	whKeyboardLL = 13

	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmMouseHWheel = 0x020E
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
)

var (
	user32                  = syscall.NewLazyDLL("user32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessage     = user32.NewProc("DispatchMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procSetCursorPos        = user32.NewProc("SetCursorPos")

	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procGetCurrentThreadID = kernel32.NewProc("GetCurrentThreadId")
)

type point struct{ X, Y int32 }

type msllhookstruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type kbdllhookstruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    syscall.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

// wmQuit matches the Windows WM_QUIT constant, posted to the hook thread to
// unblock its GetMessage loop on Stop.
const wmQuit = 0x0012

// windowsHook installs the low-level mouse and keyboard hooks described by
// §4.1, adapted from the reference codebase's WH_MOUSE_LL/WH_KEYBOARD_LL
// capture (its Trap type) but reworked to decide propagation per event
// instead of only ever observing.
type windowsHook struct {
	i *Interceptor

	mu        sync.Mutex
	mouseHook syscall.Handle
	keyHook   syscall.Handle
	threadID  uint32
	done      chan struct{}
}

func newPlatformHook() hook { return &windowsHook{} }

func (w *windowsHook) start(i *Interceptor) error {
	w.i = i
	ready := make(chan error, 1)
	w.done = make(chan struct{})
	go w.hookThread(ready)
	return <-ready
}

func (w *windowsHook) hookThread(ready chan<- error) {
	// Low-level hooks and the message loop that services them must run on
	// the same OS thread for the lifetime of the hook.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid, _, _ := procGetCurrentThreadID.Call()
	w.threadID = uint32(tid)

	mouseHook, _, err := procSetWindowsHookEx.Call(
		uintptr(whMouseLL),
		syscall.NewCallback(w.mouseHookProc),
		0, 0,
	)
	if mouseHook == 0 {
		ready <- fmt.Errorf("SetWindowsHookEx(WH_MOUSE_LL): %v", err)
		return
	}

	keyHook, _, err := procSetWindowsHookEx.Call(
		uintptr(whKeyboardLL),
		syscall.NewCallback(w.keyboardHookProc),
		0, 0,
	)
	if keyHook == 0 {
		procUnhookWindowsHookEx.Call(mouseHook)
		ready <- fmt.Errorf("SetWindowsHookEx(WH_KEYBOARD_LL): %v", err)
		return
	}

	w.mu.Lock()
	w.mouseHook = syscall.Handle(mouseHook)
	w.keyHook = syscall.Handle(keyHook)
	w.mu.Unlock()

	ready <- nil

	var m msg
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 || m.Message == wmQuit {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}

	w.mu.Lock()
	procUnhookWindowsHookEx.Call(uintptr(w.mouseHook))
	procUnhookWindowsHookEx.Call(uintptr(w.keyHook))
	w.mouseHook, w.keyHook = 0, 0
	w.mu.Unlock()
	close(w.done)
}

func (w *windowsHook) stop() {
	if w.done == nil {
		return
	}
	procPostThreadMessage.Call(uintptr(w.threadID), uintptr(wmQuit), 0, 0)
	<-w.done
}

func (w *windowsHook) warpCursor(x, y int32) {
	procSetCursorPos.Call(uintptr(x), uintptr(y))
}

func (w *windowsHook) cursorPos() (int32, int32) {
	var p point
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&p)))
	return p.X, p.Y
}

// mouseHookProc runs on the OS hook thread via syscall.NewCallback; a panic
// that escapes it takes the whole process down with it, so it gets the same
// recover guard the reference codebase puts around its HTTP handlers.
func (w *windowsHook) mouseHookProc(nCode int32, wParam uintptr, lParam uintptr) (ret uintptr) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("interceptor: PANIC RECOV in mouseHookProc: %v", r)
			ret = callNext(nCode, wParam, lParam)
		}
	}()

	if nCode < 0 {
		return callNext(nCode, wParam, lParam)
	}

	hs := (*msllhookstruct)(unsafe.Pointer(lParam))
	wm := uint32(wParam)

	switch wm {
	case wmMouseMove:
		w.i.deliverMove(hs.Pt.X, hs.Pt.Y)
	case wmLButtonDown:
		w.i.deliverButton(event.ButtonLeft, true)
	case wmLButtonUp:
		w.i.deliverButton(event.ButtonLeft, false)
	case wmRButtonDown:
		w.i.deliverButton(event.ButtonRight, true)
	case wmRButtonUp:
		w.i.deliverButton(event.ButtonRight, false)
	case wmMButtonDown:
		w.i.deliverButton(event.ButtonMiddle, true)
	case wmMButtonUp:
		w.i.deliverButton(event.ButtonMiddle, false)
	case wmXButtonDown:
		w.i.deliverButton(xButton(hs.MouseData), true)
	case wmXButtonUp:
		w.i.deliverButton(xButton(hs.MouseData), false)
	case wmMouseWheel:
		w.i.deliverScroll(0, wheelDelta(hs.MouseData))
	case wmMouseHWheel:
		w.i.deliverScroll(wheelDelta(hs.MouseData), 0)
	}

	if w.i.Suppressed() {
		return 1
	}
	return callNext(nCode, wParam, lParam)
}

func (w *windowsHook) keyboardHookProc(nCode int32, wParam uintptr, lParam uintptr) (ret uintptr) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("interceptor: PANIC RECOV in keyboardHookProc: %v", r)
			ret = callNext(nCode, wParam, lParam)
		}
	}()

	if nCode < 0 {
		return callNext(nCode, wParam, lParam)
	}

	ks := (*kbdllhookstruct)(unsafe.Pointer(lParam))
	wm := uint32(wParam)
	pressed := wm == wmKeyDown || wm == wmSysKeyDown

	propagate := w.i.deliverKey(ks.VkCode, ks.ScanCode, ks.Flags, pressed)
	if !propagate {
		return 1
	}
	return callNext(nCode, wParam, lParam)
}

func callNext(nCode int32, wParam, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

// xButton decodes which X-button (back/forward) a WM_XBUTTONDOWN/UP message
// refers to from the high word of mouseData.
func xButton(mouseData uint32) event.Button {
	if (mouseData>>16)&0xFFFF == 2 {
		return event.ButtonX2
	}
	return event.ButtonX1
}

// wheelDelta extracts the signed wheel delta from the high word of
// mouseData (WHEEL_DELTA units, positive away from the user).
func wheelDelta(mouseData uint32) int32 {
	return int32(int16(mouseData >> 16))
}
