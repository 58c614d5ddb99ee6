package discovery

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestPacketRoundTrip(t *testing.T) {
	id := uuid.New()
	want := Packet{Type: PacketType, Port: 24800, ScreenW: 1920, ScreenH: 1080, IsPrimary: true, Name: "desk-1", ID: id}

	got, err := Decode(Encode(want))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeRejectsMissingMagic(t *testing.T) {
	_, err := Decode(make([]byte, packetSize))
	if !errors.Is(err, ErrNoMagic) {
		t.Fatalf("expected ErrNoMagic, got %v", err)
	}
}

func TestDecodeTruncatesLongName(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	want := Packet{Name: string(long)}
	got, err := Decode(Encode(want))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Name) != nameField-1 {
		t.Errorf("name length = %d, want %d", len(got.Name), nameField-1)
	}
}
