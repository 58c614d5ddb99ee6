//go:build darwin

package injector

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <CoreGraphics/CoreGraphics.h>
#include <ApplicationServices/ApplicationServices.h>

CGPoint msCurrentPos(void) {
    CGEventRef event = CGEventCreate(NULL);
    CGPoint pos = CGEventGetLocation(event);
    CFRelease(event);
    return pos;
}

void msInjectMove(CGFloat x, CGFloat y) {
    CGPoint pos = CGPointMake(x, y);
    CGEventRef event = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, pos, kCGMouseButtonLeft);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

void msInjectButton(CGFloat x, CGFloat y, int button, bool pressed) {
    CGMouseButton cgButton;
    CGEventType eventType;

    switch (button) {
        case 1: cgButton = kCGMouseButtonLeft; break;
        case 2: cgButton = kCGMouseButtonRight; break;
        default: cgButton = kCGMouseButtonCenter; break;
    }

    if (pressed) {
        switch (button) {
            case 1: eventType = kCGEventLeftMouseDown; break;
            case 2: eventType = kCGEventRightMouseDown; break;
            default: eventType = kCGEventOtherMouseDown; break;
        }
    } else {
        switch (button) {
            case 1: eventType = kCGEventLeftMouseUp; break;
            case 2: eventType = kCGEventRightMouseUp; break;
            default: eventType = kCGEventOtherMouseUp; break;
        }
    }

    CGPoint pos = CGPointMake(x, y);
    CGEventRef event = CGEventCreateMouseEvent(NULL, eventType, pos, cgButton);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

void msInjectScroll(int32_t dx, int32_t dy) {
    CGEventRef event = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitPixel, 2, dy, dx);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

void msInjectKey(CGKeyCode keyCode, bool pressed) {
    CGEventRef event = CGEventCreateKeyboardEvent(NULL, keyCode, pressed);
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
}

size_t msScreenWidth(void) {
    return CGDisplayPixelsWide(CGMainDisplayID());
}

size_t msScreenHeight(void) {
    return CGDisplayPixelsHigh(CGMainDisplayID());
}
*/
import "C"

import (
	"mouseshare/internal/event"
)

// windowsToMacKey maps the Windows virtual-key codes the wire protocol
// carries to the macOS CGKeyCode space, adapted from the reference
// codebase's own conversion table.
var windowsToMacKey = map[uint32]C.CGKeyCode{
	0x41: 0x00, 0x42: 0x0B, 0x43: 0x08, 0x44: 0x02, 0x45: 0x0E,
	0x46: 0x03, 0x47: 0x05, 0x48: 0x04, 0x49: 0x22, 0x4A: 0x26,
	0x4B: 0x28, 0x4C: 0x25, 0x4D: 0x2E, 0x4E: 0x2D, 0x4F: 0x1F,
	0x50: 0x23, 0x51: 0x0C, 0x52: 0x0F, 0x53: 0x01, 0x54: 0x11,
	0x55: 0x20, 0x56: 0x09, 0x57: 0x0D, 0x58: 0x07, 0x59: 0x10,
	0x5A: 0x06,
	0x30: 0x1D, 0x31: 0x12, 0x32: 0x13, 0x33: 0x14, 0x34: 0x15,
	0x35: 0x17, 0x36: 0x16, 0x37: 0x1A, 0x38: 0x1C, 0x39: 0x19,
	0x70: 0x7A, 0x71: 0x78, 0x72: 0x63, 0x73: 0x76, 0x74: 0x60,
	0x75: 0x61, 0x76: 0x62, 0x77: 0x64, 0x78: 0x65, 0x79: 0x6D,
	0x7A: 0x67, 0x7B: 0x6F,
	0x08: 0x33, 0x09: 0x30, 0x0D: 0x24, 0x10: 0x38, 0x11: 0x3B,
	0x12: 0x3A, 0x14: 0x39, 0x1B: 0x35, 0x20: 0x31,
	0x25: 0x7B, 0x26: 0x7E, 0x27: 0x7C, 0x28: 0x7D,
	0x21: 0x74, 0x22: 0x79, 0x23: 0x77, 0x24: 0x73, 0x2D: 0x72, 0x2E: 0x75,
	0x5B: 0x37, 0x5C: 0x36,
	0x91: 0x6F, // SCROLL_LOCK -> F12 slot, no direct macOS equivalent
}

type darwinPlatform struct{}

func newPlatform() platform { return &darwinPlatform{} }

func (d *darwinPlatform) init() error { return nil }

func (d *darwinPlatform) screenSize() (int32, int32) {
	return int32(C.msScreenWidth()), int32(C.msScreenHeight())
}

func (d *darwinPlatform) moveAbsolute(x, y int32) {
	C.msInjectMove(C.CGFloat(x), C.CGFloat(y))
}

func (d *darwinPlatform) button(b event.Button, pressed bool) {
	btn := 3
	switch b {
	case event.ButtonLeft:
		btn = 1
	case event.ButtonRight:
		btn = 2
	case event.ButtonMiddle:
		btn = 3
	}
	x, y := currentPos()
	C.msInjectButton(C.CGFloat(x), C.CGFloat(y), C.int(btn), C.bool(pressed))
}

func (d *darwinPlatform) scroll(dx, dy int32) {
	C.msInjectScroll(C.int32_t(dx), C.int32_t(dy))
}

func (d *darwinPlatform) key(vk, scan, flags uint32, pressed bool) {
	mac, ok := windowsToMacKey[vk]
	if !ok {
		mac = C.CGKeyCode(vk)
	}
	C.msInjectKey(mac, C.bool(pressed))
}

func currentPos() (int32, int32) {
	pos := C.msCurrentPos()
	return int32(pos.x), int32(pos.y)
}
