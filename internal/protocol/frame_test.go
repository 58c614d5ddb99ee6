package protocol

import (
	"bytes"
	"errors"
	"testing"

	"mouseshare/internal/event"
)

func TestRoundTrip(t *testing.T) {
	cases := []event.Event{
		event.MouseMove(1918, 500, 5, 0),
		event.MouseButton(event.ButtonLeft, true),
		event.MouseButton(event.ButtonX2, false),
		event.MouseScroll(-1, 2),
		event.Key(0x41, 0x1E, event.ExtendedKeyFlag, true),
		event.ScreenInfo(1920, 1080),
		event.SwitchScreen(event.EdgeLeft, 500),
		event.Keepalive(),
	}

	for _, want := range cases {
		frame, err := Encode(want, 12345)
		if err != nil {
			t.Fatalf("Encode(%v): %v", want.Type, err)
		}
		h, err := DecodeHeader(frame[:HeaderSize])
		if err != nil {
			t.Fatalf("DecodeHeader: %v", err)
		}
		got, err := DecodePayload(h.Type, frame[HeaderSize:])
		if err != nil {
			t.Fatalf("DecodePayload(%v): %v", want.Type, err)
		}
		if got != want {
			t.Errorf("round trip mismatch for %v: got %+v, want %+v", want.Type, got, want)
		}
	}
}

func TestDecodeHeaderRejectsWrongVersion(t *testing.T) {
	h := EncodeHeader(Header{Version: 2, Type: uint8(event.TypeKeepalive), PayloadSize: 0})
	if _, err := DecodeHeader(h[:]); err == nil {
		t.Fatal("expected error for version != 1")
	}
}

func TestDecodeHeaderAcceptsMaxPayloadSize(t *testing.T) {
	h := EncodeHeader(Header{Version: Version, Type: uint8(event.TypeKeepalive), PayloadSize: 65535})
	if _, err := DecodeHeader(h[:]); err != nil {
		t.Fatalf("65535 should be accepted at the header boundary: %v", err)
	}

	// Simulate an out-of-range payload_size by forging beyond what uint16 can
	// express is impossible; the boundary check is exercised at its max.
}

func TestDecodeHeaderRejectsTruncatedHeader(t *testing.T) {
	if _, err := DecodeHeader([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestDecodePayloadRejectsWrongSize(t *testing.T) {
	_, err := DecodePayload(uint8(event.TypeMouseMove), []byte{0, 1, 2})
	if err == nil {
		t.Fatal("expected error for wrong-sized payload")
	}
}

func TestDecodePayloadKeepaliveIsZeroLength(t *testing.T) {
	got, err := DecodePayload(uint8(event.TypeKeepalive), nil)
	if err != nil {
		t.Fatalf("Keepalive with empty payload should decode: %v", err)
	}
	if got.Type != event.TypeKeepalive {
		t.Errorf("got type %v, want Keepalive", got.Type)
	}
}

func TestDecodePayloadUnknownTypeIsIgnorable(t *testing.T) {
	_, err := DecodePayload(200, []byte{1, 2, 3})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestEncodeHeaderLittleEndian(t *testing.T) {
	h := EncodeHeader(Header{Version: 1, Type: 4, Timestamp: 0x01020304, PayloadSize: 0x0506})
	want := []byte{0x01, 0x00, 0x04, 0x04, 0x03, 0x02, 0x01, 0x06, 0x05}
	if !bytes.Equal(h[:], want) {
		t.Errorf("header bytes = %x, want %x", h[:], want)
	}
}
