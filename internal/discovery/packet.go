// Package discovery implements the LAN presence broadcast and the topology
// upkeep it feeds: a fixed-layout UDP packet broadcast every few seconds on
// a dedicated discovery port, and a receive loop that upserts or reaps
// peers under the topology mutex.
package discovery

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	magic      = "MSHR"
	nameField  = 64
	idField    = 16
	packetSize = 4 + 1 + 2 + 4 + 4 + 1 + nameField + idField
)

// PacketType is the single discovery packet type this protocol defines
// today; the field exists for forward compatibility with the frame codec's
// own unknown-type convention.
const PacketType uint8 = 1

// Packet is one decoded presence announcement.
type Packet struct {
	Type      uint8
	Port      uint16
	ScreenW   int32
	ScreenH   int32
	IsPrimary bool
	Name      string
	ID        uuid.UUID
}

// ErrNoMagic is returned by Decode when the packet lacks the expected
// 4-byte prefix — the receive contract requires silently dropping such
// packets, not treating them as malformed frames.
var ErrNoMagic = errors.New("discovery: missing magic prefix")

// Encode packs p into the fixed-layout broadcast packet: magic, type, port,
// screen_w, screen_h, is_primary, a NUL-padded name, and the stable host id
// appended after the original fixed fields (see the peer-identity decision
// this implementation carries).
func Encode(p Packet) []byte {
	b := make([]byte, packetSize)
	copy(b[0:4], magic)
	b[4] = p.Type
	binary.LittleEndian.PutUint16(b[5:7], p.Port)
	binary.LittleEndian.PutUint32(b[7:11], uint32(p.ScreenW))
	binary.LittleEndian.PutUint32(b[11:15], uint32(p.ScreenH))
	if p.IsPrimary {
		b[15] = 1
	}
	nameBytes := []byte(p.Name)
	if len(nameBytes) > nameField-1 {
		nameBytes = nameBytes[:nameField-1]
	}
	copy(b[16:16+nameField], nameBytes)
	copy(b[16+nameField:16+nameField+idField], p.ID[:])
	return b
}

// Decode parses a received packet, rejecting anything lacking the magic
// prefix or too short to hold the fixed layout.
func Decode(b []byte) (Packet, error) {
	if len(b) < 4 || string(b[0:4]) != magic {
		return Packet{}, ErrNoMagic
	}
	if len(b) < packetSize {
		return Packet{}, fmt.Errorf("discovery: short packet (%d bytes)", len(b))
	}

	var p Packet
	p.Type = b[4]
	p.Port = binary.LittleEndian.Uint16(b[5:7])
	p.ScreenW = int32(binary.LittleEndian.Uint32(b[7:11]))
	p.ScreenH = int32(binary.LittleEndian.Uint32(b[11:15]))
	p.IsPrimary = b[15] != 0
	p.Name = nulTerminated(b[16 : 16+nameField])
	copy(p.ID[:], b[16+nameField:16+nameField+idField])
	return p, nil
}

func nulTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
