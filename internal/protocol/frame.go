// Package protocol implements the wire codec: framing, serialization, and
// parsing of event.Event values over the session transport. Layout follows
// the fixed, little-endian packing scheme: a 9-byte header followed by a
// type-specific fixed-footprint payload, adapted from the header/payload
// split the teacher's UDP packet codec uses for its own framed events, but
// with the byte order and header fields this protocol actually specifies.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"mouseshare/internal/event"
)

// Version is the only wire version this codec understands.
const Version uint16 = 1

// HeaderSize is the fixed header footprint: version(2) + type(1) + timestamp(4) + payload_size(2).
const HeaderSize = 9

// MaxPayloadSize bounds payload_size, which is itself a uint16 and so can
// never exceed this value; the check exists because the spec calls it out
// as an explicit rejection rule, not because the type admits a larger value.
const MaxPayloadSize = 65535

// ErrUnknownType is returned by DecodePayload for a type value this codec
// does not recognize. Callers must treat this as "log and skip the frame",
// not as a reason to close the session — forward compatibility, not
// corruption.
var ErrUnknownType = errors.New("protocol: unknown frame type")

// Header is the fixed 9-byte frame header.
type Header struct {
	Version     uint16
	Type        uint8
	Timestamp   uint32
	PayloadSize uint16
}

// EncodeHeader packs h into its wire form.
func EncodeHeader(h Header) [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint16(b[0:2], h.Version)
	b[2] = h.Type
	binary.LittleEndian.PutUint32(b[3:7], h.Timestamp)
	binary.LittleEndian.PutUint16(b[7:9], h.PayloadSize)
	return b
}

// DecodeHeader unpacks a 9-byte header and rejects a version other than 1
// or a payload_size above MaxPayloadSize.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("protocol: short header (%d bytes)", len(b))
	}
	h := Header{
		Version:     binary.LittleEndian.Uint16(b[0:2]),
		Type:        b[2],
		Timestamp:   binary.LittleEndian.Uint32(b[3:7]),
		PayloadSize: binary.LittleEndian.Uint16(b[7:9]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("protocol: unsupported version %d", h.Version)
	}
	if h.PayloadSize > MaxPayloadSize {
		return Header{}, fmt.Errorf("protocol: payload_size %d exceeds maximum", h.PayloadSize)
	}
	return h, nil
}

// payloadSize returns the fixed footprint for a known event type, and
// whether the type is recognized at all.
func payloadSize(t event.Type) (int, bool) {
	switch t {
	case event.TypeMouseMove:
		return 16, true
	case event.TypeMouseButton:
		return 2, true
	case event.TypeMouseScroll:
		return 8, true
	case event.TypeKey:
		return 13, true
	case event.TypeScreenInfo:
		return 8, true
	case event.TypeSwitchScreen:
		return 5, true
	case event.TypeKeepalive:
		return 0, true
	default:
		return 0, false
	}
}

// Encode serializes e into a full frame (header + payload), stamping
// timestamp as the sender-local monotonic millisecond clock value passed by
// the caller (diagnostic only, per the spec's data model).
func Encode(e event.Event, timestampMS uint32) ([]byte, error) {
	payload, err := encodePayload(e)
	if err != nil {
		return nil, err
	}
	h := EncodeHeader(Header{
		Version:     Version,
		Type:        uint8(e.Type),
		Timestamp:   timestampMS,
		PayloadSize: uint16(len(payload)),
	})
	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = append(frame, h[:]...)
	frame = append(frame, payload...)
	return frame, nil
}

func encodePayload(e event.Event) ([]byte, error) {
	switch e.Type {
	case event.TypeMouseMove:
		b := make([]byte, 16)
		binary.LittleEndian.PutUint32(b[0:4], uint32(e.AbsX))
		binary.LittleEndian.PutUint32(b[4:8], uint32(e.AbsY))
		binary.LittleEndian.PutUint32(b[8:12], uint32(e.DX))
		binary.LittleEndian.PutUint32(b[12:16], uint32(e.DY))
		return b, nil
	case event.TypeMouseButton:
		b := make([]byte, 2)
		b[0] = uint8(e.Button)
		b[1] = boolByte(e.Pressed)
		return b, nil
	case event.TypeMouseScroll:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint32(b[0:4], uint32(e.DX))
		binary.LittleEndian.PutUint32(b[4:8], uint32(e.DY))
		return b, nil
	case event.TypeKey:
		b := make([]byte, 13)
		binary.LittleEndian.PutUint32(b[0:4], e.VK)
		binary.LittleEndian.PutUint32(b[4:8], e.Scan)
		binary.LittleEndian.PutUint32(b[8:12], e.Flags)
		b[12] = boolByte(e.Pressed)
		return b, nil
	case event.TypeScreenInfo:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint32(b[0:4], uint32(e.Width))
		binary.LittleEndian.PutUint32(b[4:8], uint32(e.Height))
		return b, nil
	case event.TypeSwitchScreen:
		b := make([]byte, 5)
		b[0] = uint8(e.SwitchEdge)
		binary.LittleEndian.PutUint32(b[1:5], uint32(e.Position))
		return b, nil
	case event.TypeKeepalive:
		return nil, nil
	default:
		return nil, fmt.Errorf("protocol: cannot encode unknown type %d", e.Type)
	}
}

// DecodePayload decodes a payload of the declared type, enforcing the exact
// fixed-footprint size for that type. For an unrecognized type it returns
// ErrUnknownType so the caller can skip the frame without closing the
// session.
func DecodePayload(typ uint8, payload []byte) (event.Event, error) {
	want, known := payloadSize(event.Type(typ))
	if !known {
		return event.Event{}, ErrUnknownType
	}
	if len(payload) != want {
		return event.Event{}, fmt.Errorf("protocol: type %d expects %d-byte payload, got %d", typ, want, len(payload))
	}

	switch event.Type(typ) {
	case event.TypeMouseMove:
		return event.MouseMove(
			int32(binary.LittleEndian.Uint32(payload[0:4])),
			int32(binary.LittleEndian.Uint32(payload[4:8])),
			int32(binary.LittleEndian.Uint32(payload[8:12])),
			int32(binary.LittleEndian.Uint32(payload[12:16])),
		), nil
	case event.TypeMouseButton:
		return event.MouseButton(event.Button(payload[0]), payload[1] != 0), nil
	case event.TypeMouseScroll:
		return event.MouseScroll(
			int32(binary.LittleEndian.Uint32(payload[0:4])),
			int32(binary.LittleEndian.Uint32(payload[4:8])),
		), nil
	case event.TypeKey:
		return event.Key(
			binary.LittleEndian.Uint32(payload[0:4]),
			binary.LittleEndian.Uint32(payload[4:8]),
			binary.LittleEndian.Uint32(payload[8:12]),
			payload[12] != 0,
		), nil
	case event.TypeScreenInfo:
		return event.ScreenInfo(
			int32(binary.LittleEndian.Uint32(payload[0:4])),
			int32(binary.LittleEndian.Uint32(payload[4:8])),
		), nil
	case event.TypeSwitchScreen:
		return event.SwitchScreen(
			event.Edge(payload[0]),
			int32(binary.LittleEndian.Uint32(payload[1:5])),
		), nil
	case event.TypeKeepalive:
		return event.Keepalive(), nil
	default:
		return event.Event{}, ErrUnknownType
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
